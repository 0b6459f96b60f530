package retriever

import (
	"sort"
	"strings"

	"eidrag/internal/domain"
)

// KeywordScore weighs query words found in the title (3 each) and content
// (1 each), plus the whole query as a phrase in the title (5) and content (2).
func KeywordScore(query, title, content string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	title = strings.ToLower(title)
	content = strings.ToLower(content)
	score := 0
	for _, w := range strings.Fields(q) {
		if strings.Contains(title, w) {
			score += 3
		}
		if strings.Contains(content, w) {
			score += 1
		}
	}
	if q != "" {
		if strings.Contains(title, q) {
			score += 5
		}
		if strings.Contains(content, q) {
			score += 2
		}
	}
	return score
}

// maxKeywordScore is the best score any candidate can reach for query.
func maxKeywordScore(query string) int {
	return 4*len(strings.Fields(query)) + 7
}

// Rank scores sources by KeywordScore and orders them best first. Equal
// scores keep their input order. Relevance is the raw score divided by the
// best achievable score, so it lies in [0, 1].
func Rank(query string, sources []domain.Source) []domain.Source {
	out := make([]domain.Source, len(sources))
	copy(out, sources)
	maxScore := float64(maxKeywordScore(query))
	for i := range out {
		raw := float64(KeywordScore(query, out[i].Title, out[i].Content))
		out[i].RawScore = raw
		out[i].Relevance = raw / maxScore
		out[i].ScoreKind = domain.ScoreKeyword
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RawScore > out[j].RawScore })
	return out
}
