package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := New()
	require.NoError(t, err)
	return v
}

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verr *Error
	require.True(t, errors.As(err, &verr), "expected *validation.Error, got %v", err)
	var out []string
	for _, f := range verr.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestValidate_Search(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Validate(Search, []byte(`{"query":"What is Eid?"}`)))

	err := v.Validate(Search, []byte(`{"query":"Hi"}`))
	assert.Equal(t, []string{"query"}, fieldsOf(t, err))

	// whitespace does not count towards the minimum
	err = v.Validate(Search, []byte(`{"query":"  Hi   "}`))
	assert.Equal(t, []string{"query"}, fieldsOf(t, err))

	err = v.Validate(Search, []byte(`{"query":"`+strings.Repeat("a", 501)+`"}`))
	assert.Equal(t, []string{"query"}, fieldsOf(t, err))

	err = v.Validate(Search, []byte(`{}`))
	assert.Equal(t, []string{"query"}, fieldsOf(t, err))
}

func TestValidate_Answer(t *testing.T) {
	v := newValidator(t)

	assert.NoError(t, v.Validate(Answer, []byte(`{"query":"What is Eid?","urls":["https://troid.org/a"]}`)))

	err := v.Validate(Answer, []byte(`{"query":"What is Eid?","urls":[]}`))
	assert.Equal(t, []string{"urls"}, fieldsOf(t, err))

	err = v.Validate(Answer, []byte(`{"query":"What is Eid?","urls":["http://"]}`))
	assert.Equal(t, []string{"urls"}, fieldsOf(t, err))

	many := `["https://troid.org/1","https://troid.org/2","https://troid.org/3","https://troid.org/4","https://troid.org/5","https://troid.org/6","https://troid.org/7","https://troid.org/8","https://troid.org/9","https://troid.org/10","https://troid.org/11"]`
	err = v.Validate(Answer, []byte(`{"query":"What is Eid?","urls":`+many+`}`))
	assert.Equal(t, []string{"urls"}, fieldsOf(t, err))

	err = v.Validate(Answer, []byte(`{"query":"x"}`))
	assert.ElementsMatch(t, []string{"query", "urls"}, fieldsOf(t, err))
}

func TestValidate_Related(t *testing.T) {
	v := newValidator(t)
	assert.NoError(t, v.Validate(Related, []byte(`{"topic":"Eid"}`)))
	err := v.Validate(Related, []byte(`{"topic":"E"}`))
	assert.Equal(t, []string{"topic"}, fieldsOf(t, err))
}

func TestValidate_Sources(t *testing.T) {
	v := newValidator(t)
	assert.NoError(t, v.Validate(Sources, []byte(`{"seed_urls":["https://troid.org/"],"allowed_domains":["troid.org"]}`)))
	err := v.Validate(Sources, []byte(`{"seed_urls":"https://troid.org/"}`))
	assert.Equal(t, []string{"seed_urls"}, fieldsOf(t, err))
}

func TestValidate_MalformedJSON(t *testing.T) {
	v := newValidator(t)
	err := v.Validate(Search, []byte(`{"query":`))
	assert.Equal(t, []string{"$"}, fieldsOf(t, err))
}

func TestDecode(t *testing.T) {
	v := newValidator(t)
	var req struct {
		Query string `json:"query"`
	}
	require.NoError(t, v.Decode(Search, []byte(`{"query":"What is Eid?"}`), &req))
	assert.Equal(t, "What is Eid?", req.Query)
}
