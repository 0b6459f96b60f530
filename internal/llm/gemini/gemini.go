package gemini

import (
	"context"
	"errors"
	"strings"

	"eidrag/internal/gemini"
)

// Completer calls generateContent on the named model.
type Completer struct {
	client *gemini.Client
}

// NewCompleter returns a completer backed by client.
func NewCompleter(client *gemini.Client) *Completer {
	return &Completer{client: client}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Complete sends prompt as a single user turn and joins the text parts of
// the first candidate.
func (c *Completer) Complete(ctx context.Context, model, prompt string) (string, error) {
	path := gemini.ModelPath(model) + ":generateContent"
	req := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}
	var out generateResponse
	if err := c.client.Post(ctx, "generateContent", path, req, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("gemini generateContent: no candidates returned")
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("gemini generateContent: empty response")
	}
	return text, nil
}

// Model describes an available model.
type Model struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// ListModels returns every model visible to the API key.
func (c *Completer) ListModels(ctx context.Context) ([]Model, error) {
	var models []Model
	pageToken := ""
	for {
		path := "models?pageSize=100"
		if pageToken != "" {
			path += "&pageToken=" + pageToken
		}
		var out struct {
			Models        []Model `json:"models"`
			NextPageToken string  `json:"nextPageToken"`
		}
		if err := c.client.Get(ctx, "listModels", path, &out); err != nil {
			return nil, err
		}
		models = append(models, out.Models...)
		if out.NextPageToken == "" {
			return models, nil
		}
		pageToken = out.NextPageToken
	}
}
