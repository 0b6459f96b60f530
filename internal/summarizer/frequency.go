package summarizer

import (
	"math"
	"regexp"
	"slices"
	"strings"
)

var (
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

var stopwords = toSet(
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of",
	"in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been",
	"being", "it", "its", "this", "that", "these", "those", "from", "into", "about",
	"than", "so", "such", "out", "off", "too", "very", "can", "will", "just", "not",
	"should", "now", "upon", "him", "his", "her", "they", "them", "their", "we",
	"you", "i", "do", "does", "did", "what", "which", "who", "how", "why",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

// Words returns the lower-cased content words of text, stopwords removed.
func Words(text string) []string {
	all := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, w := range all {
		if _, stop := stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

// Sentences splits text on terminal punctuation. Trailing text without a
// terminator is dropped.
func Sentences(text string) []string {
	raw := sentencePattern.FindAllString(text, -1)
	for i := range raw {
		raw[i] = strings.TrimSpace(raw[i])
	}
	return raw
}

// FrequencySummarizer keeps the sentences whose content words occur most
// often across the whole text.
type FrequencySummarizer struct{}

// NewFrequencySummarizer returns a FrequencySummarizer.
func NewFrequencySummarizer() *FrequencySummarizer { return &FrequencySummarizer{} }

type scoredSentence struct {
	pos   int
	text  string
	words []string
	score float64
}

// Summarize returns up to maxSentences sentences in their original order.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	parts := Sentences(text)
	if len(parts) == 0 {
		return strings.TrimSpace(text), nil
	}

	sents := make([]scoredSentence, len(parts))
	counts := map[string]int{}
	peak := 0
	for i, p := range parts {
		sents[i] = scoredSentence{pos: i, text: p, words: Words(p)}
		for _, w := range sents[i].words {
			counts[w]++
			peak = max(peak, counts[w])
		}
	}
	for i := range sents {
		sents[i].score = weigh(sents[i].words, counts, peak)
	}

	slices.SortStableFunc(sents, func(a, b scoredSentence) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})
	keep := sents[:min(maxSentences, len(sents))]
	slices.SortFunc(keep, func(a, b scoredSentence) int { return a.pos - b.pos })

	texts := make([]string, len(keep))
	for i, k := range keep {
		texts[i] = k.text
	}
	return strings.Join(texts, " "), nil
}

// weigh sums the peak-relative frequency of each word, damped by the square
// root of the sentence length.
func weigh(words []string, counts map[string]int, peak int) float64 {
	if len(words) == 0 || peak == 0 {
		return 0
	}
	total := 0.0
	for _, w := range words {
		total += float64(counts[w]) / float64(peak)
	}
	return total / math.Sqrt(float64(len(words)))
}
