// Package llm runs text models in schema-constrained JSON mode for theme
// synthesis.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"inviteai/internal/domain"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"
)

// Request is one JSON generation call. Schema is a JSON Schema object.
type Request struct {
	Model       domain.ModelDescriptor
	System      string
	Prompt      string
	SchemaName  string
	Schema      map[string]any
	Temperature float64
}

// Response is the raw model text and its usage.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
	Provider     string
}

// Generator produces a JSON document for a prompt.
type Generator interface {
	GenerateJSON(ctx context.Context, req Request) (*Response, error)
}

// Registry picks a Generator by provider type.
type Registry struct {
	generators map[domain.ProviderType]Generator
}

func NewRegistry() *Registry {
	return &Registry{generators: map[domain.ProviderType]Generator{}}
}

func (r *Registry) Register(t domain.ProviderType, g Generator) *Registry {
	r.generators[t] = g
	return r
}

func (r *Registry) For(model domain.ModelDescriptor) (Generator, error) {
	g, ok := r.generators[model.ProviderType]
	if !ok || g == nil {
		return nil, fmt.Errorf("%w: no text provider for %q (%s)", domain.ErrUnknownModel, model.ID, model.ProviderType)
	}
	return g, nil
}

func (r *Registry) Types() []domain.ProviderType {
	out := make([]domain.ProviderType, 0, len(r.generators))
	for t := range r.generators {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type credentialed interface {
	HasCredentials() bool
}

type fallbackGenerator struct {
	primary  Generator
	creds    credentialed
	fallback Generator
	onUse    func(reason string)
}

// WithFallback routes calls to fallback while the primary has no key. Errors
// from a configured primary are returned unchanged.
func WithFallback(primary Generator, creds credentialed, fallback Generator, onUse func(reason string)) Generator {
	if fallback == nil {
		return primary
	}
	return &fallbackGenerator{primary: primary, creds: creds, fallback: fallback, onUse: onUse}
}

func (f *fallbackGenerator) GenerateJSON(ctx context.Context, req Request) (*Response, error) {
	if f.creds != nil && !f.creds.HasCredentials() {
		if f.onUse != nil {
			f.onUse("missing_api_key")
		}
		return f.fallback.GenerateJSON(ctx, req)
	}
	return f.primary.GenerateJSON(ctx, req)
}

// ParsePayload decodes the first JSON value found in raw, tolerating code
// fences and surrounding prose.
func ParsePayload[T any](raw string) (T, error) {
	var zero T
	cleaned := ExtractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

// ExtractJSONFragment trims everything outside the outermost braces.
func ExtractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
