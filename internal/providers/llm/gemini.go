package llm

import (
	"context"
	"errors"

	"inviteai/internal/providers/genai"
)

type geminiJSONClient interface {
	GenerateJSON(context.Context, genai.JSONRequest) (*genai.JSONResult, error)
	HasCredentials() bool
}

const defaultGeminiTextModel = "gemini-2.5-flash"

// GeminiGenerator uses responseMimeType application/json plus responseSchema.
type GeminiGenerator struct {
	client geminiJSONClient
}

func NewGeminiGenerator(client geminiJSONClient) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) HasCredentials() bool {
	return g != nil && g.client != nil && g.client.HasCredentials()
}

func (g *GeminiGenerator) GenerateJSON(ctx context.Context, req Request) (*Response, error) {
	if g == nil || g.client == nil {
		return nil, errors.New("gemini generator not configured")
	}
	res, err := g.client.GenerateJSON(ctx, genai.JSONRequest{
		Model:       coalesce(req.Model.VendorModel, defaultGeminiTextModel),
		System:      req.System,
		Prompt:      req.Prompt,
		Schema:      geminiSchema(req.Schema),
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return &Response{
		Text:         res.Text,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
		Provider:     geminiProviderName,
	}, nil
}

// geminiSchema strips JSON Schema keywords the Gemini OpenAPI subset rejects.
func geminiSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		switch k {
		case "additionalProperties", "$schema", "$id":
			continue
		}
		switch typed := v.(type) {
		case map[string]any:
			out[k] = geminiSchema(typed)
		case []any:
			items := make([]any, len(typed))
			for i, item := range typed {
				if m, ok := item.(map[string]any); ok {
					items[i] = geminiSchema(m)
				} else {
					items[i] = item
				}
			}
			out[k] = items
		default:
			out[k] = v
		}
	}
	return out
}

var _ Generator = (*GeminiGenerator)(nil)
