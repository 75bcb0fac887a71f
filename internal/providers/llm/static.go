package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// StaticGenerator answers with a fixed document so the theme flow runs
// without any text model configured. Pick selects the document per prompt.
type StaticGenerator struct {
	Pick func(prompt string) json.RawMessage
}

func NewStaticGenerator(pick func(prompt string) json.RawMessage) *StaticGenerator {
	return &StaticGenerator{Pick: pick}
}

func (s *StaticGenerator) GenerateJSON(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.Pick == nil {
		return nil, errors.New("static generator has no documents")
	}
	doc := s.Pick(req.Prompt)
	if len(doc) == 0 {
		return nil, errors.New("static generator returned an empty document")
	}
	return &Response{
		Text:     strings.TrimSpace(string(doc)),
		Provider: staticProviderName,
	}, nil
}

var _ Generator = (*StaticGenerator)(nil)
