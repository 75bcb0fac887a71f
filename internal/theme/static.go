package theme

import (
	"encoding/json"
	"strings"

	"inviteai/internal/providers/llm"
	"inviteai/internal/theme/presets"
)

// NewStaticGenerator answers theme prompts with the closest built-in preset.
func NewStaticGenerator() *llm.StaticGenerator {
	return llm.NewStaticGenerator(func(prompt string) json.RawMessage {
		return presets.Match(brief(prompt)).Raw
	})
}

// brief extracts the user brief from a prompt built by BuildPrompt.
func brief(prompt string) string {
	const marker = "Invitation brief: "
	rest, ok := strings.CutPrefix(prompt, marker)
	if !ok {
		return prompt
	}
	line, _, _ := strings.Cut(rest, "\n")
	return line
}
