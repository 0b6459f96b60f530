// Package generator composes grounded answers with an ordered chain of
// language models.
package generator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"eidrag/internal/domain"
	"eidrag/internal/logger"
	"eidrag/internal/upstream"
)

var log = logger.New("generator")

// Decision says what the chain does after a failed model call.
type Decision int

const (
	// Abort stops the chain and returns the error.
	Abort Decision = iota
	// NextModel tries the next model in the chain.
	NextModel
)

// Classify decides whether err allows falling back to another model. Only
// "model not found" and "rate limited" do.
func Classify(err error) Decision {
	switch upstream.StatusOf(err) {
	case http.StatusNotFound, http.StatusTooManyRequests:
		return NextModel
	default:
		return Abort
	}
}

// Attempt records one failed model call.
type Attempt struct {
	Model string
	Err   error
}

// ChainError is returned when no model produced an answer.
type ChainError struct {
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Model+": "+a.Err.Error())
	}
	return "all models failed: " + strings.Join(parts, "; ")
}

// Unwrap returns the last failure.
func (e *ChainError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Result is a completion and the model that produced it.
type Result struct {
	Text  string
	Model string
}

// Generator runs prompts through the model chain.
type Generator struct {
	completer domain.Completer
	models    []string
}

// New builds the chain [primary, fallbacks...], dropping blanks and repeats.
func New(completer domain.Completer, primary string, fallbacks []string) *Generator {
	seen := map[string]bool{}
	var models []string
	for _, m := range append([]string{primary}, fallbacks...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	return &Generator{completer: completer, models: models}
}

// Models returns the chain in the order it is tried.
func (g *Generator) Models() []string {
	return append([]string(nil), g.models...)
}

// Complete returns the first successful completion of prompt.
func (g *Generator) Complete(ctx context.Context, prompt string) (Result, error) {
	if len(g.models) == 0 {
		return Result{}, fmt.Errorf("no generation model configured: %w", domain.ErrNotConfigured)
	}
	chain := &ChainError{}
	for _, model := range g.models {
		text, err := g.completer.Complete(ctx, model, prompt)
		if err == nil {
			return Result{Text: text, Model: model}, nil
		}
		chain.Attempts = append(chain.Attempts, Attempt{Model: model, Err: err})
		if Classify(err) == Abort {
			return Result{}, chain
		}
		log.Warn("model %s unavailable (%d), trying next", model, upstream.StatusOf(err))
	}
	return Result{}, chain
}

// Generate answers query from sources.
func (g *Generator) Generate(ctx context.Context, query string, sources []domain.Source) (Result, error) {
	return g.Complete(ctx, BuildPrompt(query, sources))
}

// BuildPrompt assembles the grounding prompt.
func BuildPrompt(query string, sources []domain.Source) string {
	blocks := make([]string, 0, len(sources))
	for _, s := range sources {
		content := s.Content
		if content == "" {
			content = s.Excerpt
		}
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", s.Title, content))
	}
	var sb strings.Builder
	sb.WriteString("You are an Islamic scholar assistant. Answer the following question based on the provided sources from trusted Islamic websites.\n\n")
	sb.WriteString("Question: " + query + "\n\n")
	sb.WriteString("Sources:\n" + strings.Join(blocks, "\n\n") + "\n\n")
	sb.WriteString(`Instructions:
1. Provide a comprehensive and accurate answer based only on the sources
2. Use proper Islamic terminology
3. Include relevant Quranic verses or hadith if mentioned in sources
4. Be respectful and educational
5. If the sources don't contain enough information, say so
6. Keep the answer clear and well-structured

Answer:`)
	return sb.String()
}

// RelatedQuestions asks for up to five questions about topic. Failures yield
// an empty list.
func (g *Generator) RelatedQuestions(ctx context.Context, topic string) []string {
	prompt := "Generate 5 related Islamic questions about: " + topic + `

The questions should be:
1. Relevant to the topic
2. Educational and meaningful
3. Appropriate for Muslims and non-Muslims
4. Cover different aspects of the topic

Return only the questions, one per line, without numbering.`
	res, err := g.Complete(ctx, prompt)
	if err != nil {
		log.Warn("related questions failed: %v", err)
		return []string{}
	}
	questions := []string{}
	for _, line := range strings.Split(res.Text, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			questions = append(questions, q)
		}
		if len(questions) == 5 {
			break
		}
	}
	return questions
}

// IsUnavailable reports whether err came from every model being missing or
// rate limited.
func IsUnavailable(err error) bool {
	var chain *ChainError
	return errors.As(err, &chain) && Classify(chain.Unwrap()) == NextModel
}
