package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidrag/internal/scope"
)

const samplePage = `<!doctype html>
<html><head><title>  The Fundamentals
 of Tawheed </title><style>body{color:red}</style></head>
<body>
<header>Site header</header>
<nav><a href="/menu">Menu</a></nav>
<script>var x = "ignored";</script>
<noscript>Enable JS</noscript>
<article>
  <h1>Tawheed</h1>
  <p>Tawheed is   the foundation
  of Islam.</p>
  <a href="/articles/2#comments">Next</a>
  <a href="https://troid.org/articles/2?utm_source=feed">Dup</a>
  <a href="https://evil.example.com/x">Outside</a>
  <a href="mailto:someone@troid.org">Mail</a>
  <a href="#top">Top</a>
</article>
<footer>Copyright</footer>
</body></html>`

func TestExtract(t *testing.T) {
	checker := scope.NewChecker([]string{"troid.org"})
	page, err := Extract(samplePage, "https://troid.org/articles/1", checker.Allowed)
	require.NoError(t, err)

	assert.Equal(t, "The Fundamentals of Tawheed", page.Title)
	assert.Equal(t, "Tawheed Tawheed is the foundation of Islam. Next Dup Outside Mail Top", page.Text)
	assert.NotContains(t, page.Text, "Site header")
	assert.NotContains(t, page.Text, "ignored")
	assert.NotContains(t, page.Text, "Copyright")
	assert.NotContains(t, page.Text, "Enable JS")

	// nav links are dropped along with the nav element
	assert.Equal(t, []string{"https://troid.org/articles/2"}, page.Links)
}

func TestExtract_Empty(t *testing.T) {
	page, err := Extract("", "https://troid.org/", func(string) bool { return true })
	require.NoError(t, err)
	assert.Empty(t, page.Text)
	assert.Empty(t, page.Links)
}
