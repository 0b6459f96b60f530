package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eidrag/internal/domain"
)

func TestKeywordScore(t *testing.T) {
	// both words in title (6), both in content (2), phrase in title (5), phrase in content (2)
	assert.Equal(t, 15, KeywordScore("Eid Prayer", "The Eid Prayer", "how to perform the eid prayer"))
	// a one-word query is also the phrase: word (3) + phrase (5) in title
	assert.Equal(t, 8, KeywordScore("tawheed", "Tawheed", "nothing relevant"))
	// word (1) + phrase (2) in content
	assert.Equal(t, 3, KeywordScore("tawheed", "Other", "about tawheed"))
	// one of two words in the title, the other in content, no phrase
	assert.Equal(t, 4, KeywordScore("eid prayer", "Eid Mubarak", "festival prayer times"))
	assert.Equal(t, 3, KeywordScore("eid prayer", "Eid Mubarak", "nothing relevant"))
	assert.Equal(t, 0, KeywordScore("zakat", "Tawheed", "oneness"))
	assert.Equal(t, 0, KeywordScore("   ", "Tawheed", "oneness"))
}

func TestRank_OrdersAndNormalizes(t *testing.T) {
	in := []domain.Source{
		{Title: "Salah", Content: "prayer times"},
		{Title: "The Fundamentals of Tawheed", Content: "Tawheed is the foundation"},
		{Title: "Beliefs", Content: "tawheed and the pillars"},
	}
	out := Rank("tawheed", in)
	require.Len(t, out, 3)
	assert.Equal(t, "The Fundamentals of Tawheed", out[0].Title)
	assert.Equal(t, "Beliefs", out[1].Title)
	assert.Equal(t, "Salah", out[2].Title)

	// max for one word is 4*1+7 = 11; top scored 3+1+5+2
	assert.InDelta(t, 1.0, out[0].Relevance, 1e-9)
	assert.InDelta(t, 11.0, out[0].RawScore, 1e-9)
	assert.InDelta(t, 3.0/11.0, out[1].Relevance, 1e-9)
	for _, s := range out {
		assert.Equal(t, domain.ScoreKeyword, s.ScoreKind)
		assert.GreaterOrEqual(t, s.Relevance, 0.0)
		assert.LessOrEqual(t, s.Relevance, 1.0)
	}
	// input untouched
	assert.Zero(t, in[0].RawScore)
}
