package genai

import (
	"context"
	"errors"
	"strings"
)

// JSONRequest asks a text model for a document matching Schema.
type JSONRequest struct {
	Model       string
	System      string
	Prompt      string
	Schema      map[string]any
	Temperature float64
}

// JSONResult is the raw model text plus token usage.
type JSONResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// GenerateJSON runs the model with responseMimeType application/json and the
// given response schema.
func (c *Client) GenerateJSON(ctx context.Context, req JSONRequest) (*JSONResult, error) {
	payload := generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   req.Schema,
			CandidateCount:   1,
		},
	}
	if req.Temperature > 0 {
		t := req.Temperature
		payload.GenerationConfig.Temperature = &t
	}
	if sys := strings.TrimSpace(req.System); sys != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: sys}}}
	}
	resp, err := c.generate(ctx, req.Model, payload)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	if len(resp.Candidates) > 0 {
		for _, p := range resp.Candidates[0].Content.Parts {
			b.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, errors.New("genai: empty response")
	}
	return &JSONResult{
		Text:         text,
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
	}, nil
}
