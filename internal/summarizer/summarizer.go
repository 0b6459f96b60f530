package summarizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"eidrag/internal/domain"
)

// New returns the summarizer named by kind ("frequency" or "lead").
func New(kind string) (domain.Summarizer, error) {
	switch kind {
	case "frequency", "":
		return NewFrequencySummarizer(), nil
	case "lead":
		return LeadSummarizer{}, nil
	default:
		return nil, fmt.Errorf("unsupported summarizer type: %s", kind)
	}
}

// LeadSummarizer keeps the first sentences of the text.
type LeadSummarizer struct{}

// Summarize returns the first maxSentences sentences.
func (LeadSummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	sentences := sentencePattern.FindAllString(text, maxSentences)
	if len(sentences) == 0 {
		return strings.TrimSpace(text), nil
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}
	return strings.Join(sentences, " "), nil
}

// Excerpt summarizes text with s and caps the result at maxRunes, appending
// an ellipsis when it cuts.
func Excerpt(s domain.Summarizer, text string, maxSentences, maxRunes int) string {
	out := strings.TrimSpace(text)
	if s != nil {
		if sum, err := s.Summarize(text, maxSentences); err == nil && sum != "" {
			out = sum
		}
	}
	if maxRunes > 0 && utf8.RuneCountInString(out) > maxRunes {
		r := []rune(out)
		out = strings.TrimSpace(string(r[:maxRunes])) + "..."
	}
	return out
}
