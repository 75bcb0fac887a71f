package jsoncfg

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultBatchSize is applied when a generation request omits batch_size.
	DefaultBatchSize = 4
	// MaxBatchSize caps the number of units one request may reserve.
	MaxBatchSize = 8
	// DefaultRole is used when the caller does not name who is pictured.
	DefaultRole = "couple"
	// MaxPromptLength bounds free-text theme prompts.
	MaxPromptLength = 2000
)

var allowedRoles = map[string]struct{}{
	"bride":  {},
	"groom":  {},
	"couple": {},
	"family": {},
	"guest":  {},
}

// GenerationRequest is the contract for a batch image generation call.
type GenerationRequest struct {
	ImageURL  string `json:"imageUrl"`
	Style     string `json:"style"`
	Role      string `json:"role"`
	ModelID   string `json:"modelId"`
	BatchSize int    `json:"batchSize"`
}

// Normalize trims inputs and applies server defaults and limits.
func (g *GenerationRequest) Normalize(defaultSize, maxSize int) {
	if g == nil {
		return
	}
	if defaultSize <= 0 {
		defaultSize = DefaultBatchSize
	}
	if maxSize <= 0 {
		maxSize = MaxBatchSize
	}
	g.ImageURL = strings.TrimSpace(g.ImageURL)
	g.Style = strings.TrimSpace(g.Style)
	g.Role = strings.ToLower(strings.TrimSpace(g.Role))
	g.ModelID = strings.TrimSpace(g.ModelID)
	if g.Role == "" {
		g.Role = DefaultRole
	}
	if g.BatchSize <= 0 {
		g.BatchSize = defaultSize
	}
	if g.BatchSize > maxSize {
		g.BatchSize = maxSize
	}
}

// Validate ensures the request satisfies the contract before credits are reserved.
func (g GenerationRequest) Validate() error {
	if g.ImageURL == "" {
		return fmt.Errorf("imageUrl is required")
	}
	u, err := url.Parse(g.ImageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("imageUrl must be an absolute http(s) url")
	}
	if g.Style == "" {
		return fmt.Errorf("style is required")
	}
	if len(g.Style) > 64 {
		return fmt.Errorf("style must be at most 64 characters")
	}
	if _, ok := allowedRoles[g.Role]; !ok {
		return fmt.Errorf("role must be one of bride, groom, couple, family, guest")
	}
	if g.ModelID == "" {
		return fmt.Errorf("modelId is required")
	}
	if g.BatchSize < 1 {
		return fmt.Errorf("batchSize must be positive")
	}
	return nil
}

// SectionPlanItem explains why an invitation section is enabled or required.
type SectionPlanItem struct {
	Section  string `json:"section"`
	Enabled  bool   `json:"enabled"`
	Required bool   `json:"required"`
	Reason   string `json:"reason,omitempty"`
}

// ThemeHints carries optional user intent for theme synthesis.
type ThemeHints struct {
	Tone               string `json:"tone,omitempty"`
	ColorPreference    string `json:"colorPreference,omitempty"`
	AnimationIntensity string `json:"animationIntensity,omitempty"`
}

// IsZero reports whether no hint was supplied.
func (h ThemeHints) IsZero() bool {
	return h == ThemeHints{}
}

// ThemeRequest is the contract for a theme generation call.
type ThemeRequest struct {
	Prompt       string            `json:"prompt"`
	ModelID      string            `json:"modelId"`
	InvitationID string            `json:"invitationId,omitempty"`
	SectionPlan  []SectionPlanItem `json:"sectionPlan,omitempty"`
	Hints        ThemeHints        `json:"hints,omitempty"`
	Background   bool              `json:"background,omitempty"`
}

// Normalize trims free-text fields.
func (t *ThemeRequest) Normalize() {
	if t == nil {
		return
	}
	t.Prompt = strings.TrimSpace(t.Prompt)
	t.ModelID = strings.TrimSpace(t.ModelID)
	t.InvitationID = strings.TrimSpace(t.InvitationID)
	t.Hints.Tone = strings.TrimSpace(t.Hints.Tone)
	t.Hints.ColorPreference = strings.TrimSpace(t.Hints.ColorPreference)
	t.Hints.AnimationIntensity = strings.ToLower(strings.TrimSpace(t.Hints.AnimationIntensity))
	for i := range t.SectionPlan {
		t.SectionPlan[i].Section = strings.ToLower(strings.TrimSpace(t.SectionPlan[i].Section))
		t.SectionPlan[i].Reason = strings.TrimSpace(t.SectionPlan[i].Reason)
	}
}

// Validate ensures the theme request is usable.
func (t ThemeRequest) Validate() error {
	if t.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	if len(t.Prompt) > MaxPromptLength {
		return fmt.Errorf("prompt must be at most %d characters", MaxPromptLength)
	}
	if t.ModelID == "" {
		return fmt.Errorf("modelId is required")
	}
	switch t.Hints.AnimationIntensity {
	case "", "none", "subtle", "lively":
	default:
		return fmt.Errorf("hints.animationIntensity must be one of none, subtle, lively")
	}
	for _, item := range t.SectionPlan {
		if item.Section == "" {
			return fmt.Errorf("sectionPlan entries require a section")
		}
	}
	return nil
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
