// Package catalog is the static registry of generation models.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"inviteai/internal/domain"
)

const (
	DefaultImageModel = "qwen-image-edit"
	DefaultTextModel  = "gpt-4o-mini"
)

var builtin = []domain.ModelDescriptor{
	{
		ID:                      "qwen-image-edit",
		Name:                    "Qwen Image Edit",
		Kind:                    domain.ModelKindImage,
		ProviderType:            domain.ProviderQwen,
		VendorModel:             "qwen-image-edit",
		CostPerUnit:             0.045,
		CreditsPerUnit:          1,
		Speed:                   domain.SpeedMedium,
		FacePreservationQuality: domain.QualityHigh,
		SupportsReferenceImage:  true,
		OutputEncoding:          domain.EncodingURL,
	},
	{
		ID:                      "gemini-2.5-flash-image",
		Name:                    "Gemini 2.5 Flash Image",
		Kind:                    domain.ModelKindImage,
		ProviderType:            domain.ProviderGemini,
		VendorModel:             "gemini-2.5-flash-image",
		CostPerUnit:             0.039,
		CreditsPerUnit:          1,
		Speed:                   domain.SpeedFast,
		FacePreservationQuality: domain.QualityMedium,
		SupportsReferenceImage:  true,
		OutputEncoding:          domain.EncodingInline,
	},
	{
		ID:                      "synthetic",
		Name:                    "Synthetic Preview",
		Kind:                    domain.ModelKindImage,
		ProviderType:            domain.ProviderSynthetic,
		VendorModel:             "synthetic",
		CostPerUnit:             0,
		CreditsPerUnit:          1,
		Speed:                   domain.SpeedFast,
		FacePreservationQuality: domain.QualityLow,
		SupportsReferenceImage:  false,
		OutputEncoding:          domain.EncodingInline,
	},
	{
		ID:                 "gpt-4o-mini",
		Name:               "GPT-4o mini",
		Kind:               domain.ModelKindText,
		ProviderType:       domain.ProviderOpenAI,
		VendorModel:        "gpt-4o-mini",
		CreditsPerUnit:     1,
		Speed:              domain.SpeedFast,
		InputPricePerMTok:  0.15,
		OutputPricePerMTok: 0.60,
	},
	{
		ID:                 "gemini-2.5-flash",
		Name:               "Gemini 2.5 Flash",
		Kind:               domain.ModelKindText,
		ProviderType:       domain.ProviderGemini,
		VendorModel:        "gemini-2.5-flash",
		CreditsPerUnit:     1,
		Speed:              domain.SpeedFast,
		InputPricePerMTok:  0.30,
		OutputPricePerMTok: 2.50,
	},
}

// aliases maps spellings clients send to catalog ids.
var aliases = map[string]string{
	"qwen":                           "qwen-image-edit",
	"qwen-image":                     "qwen-image-edit",
	"qwen_image_edit":                "qwen-image-edit",
	"gemini-image":                   "gemini-2.5-flash-image",
	"nano-banana":                    "gemini-2.5-flash-image",
	"nanobanana":                     "gemini-2.5-flash-image",
	"gemini-2.5-flash-image-preview": "gemini-2.5-flash-image",
	"gpt4o-mini":                     "gpt-4o-mini",
	"gpt4omini":                      "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18":         "gpt-4o-mini",
	"gemini-flash":                   "gemini-2.5-flash",
	"gemini":                         "gemini-2.5-flash",
}

// Catalog is read-only after construction and safe for concurrent use.
type Catalog struct {
	models  map[string]domain.ModelDescriptor
	ordered []domain.ModelDescriptor
}

// New returns the built-in catalog.
func New() *Catalog {
	c, err := NewWith(builtin)
	if err != nil {
		panic(err)
	}
	return c
}

// NewWith builds a catalog from descriptors. Ids must be unique.
func NewWith(models []domain.ModelDescriptor) (*Catalog, error) {
	c := &Catalog{models: make(map[string]domain.ModelDescriptor, len(models))}
	for _, m := range models {
		if m.ID == "" {
			return nil, fmt.Errorf("model id is required")
		}
		if _, dup := c.models[m.ID]; dup {
			return nil, fmt.Errorf("duplicate model id %q", m.ID)
		}
		if m.CreditsPerUnit <= 0 {
			m.CreditsPerUnit = 1
		}
		c.models[m.ID] = m
		c.ordered = append(c.ordered, m)
	}
	sort.SliceStable(c.ordered, func(i, j int) bool {
		if c.ordered[i].Kind != c.ordered[j].Kind {
			return c.ordered[i].Kind < c.ordered[j].Kind
		}
		return c.ordered[i].ID < c.ordered[j].ID
	})
	return c, nil
}

// Resolve maps id, or a known alias of it, to its descriptor.
func (c *Catalog) Resolve(id string) (domain.ModelDescriptor, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	if m, ok := c.models[key]; ok {
		return m, nil
	}
	if canonical, ok := aliases[key]; ok {
		if m, ok := c.models[canonical]; ok {
			return m, nil
		}
	}
	return domain.ModelDescriptor{}, fmt.Errorf("%w: %q", domain.ErrUnknownModel, id)
}

// ResolveKind resolves id and checks it serves the requested kind.
func (c *Catalog) ResolveKind(id string, kind domain.ModelKind) (domain.ModelDescriptor, error) {
	m, err := c.Resolve(id)
	if err != nil {
		return m, err
	}
	if m.Kind != kind {
		return domain.ModelDescriptor{}, fmt.Errorf("%w: %q is not a %s model", domain.ErrUnknownModel, id, kind)
	}
	return m, nil
}

func (c *Catalog) All() []domain.ModelDescriptor {
	return append([]domain.ModelDescriptor(nil), c.ordered...)
}

func (c *Catalog) Images() []domain.ModelDescriptor { return c.byKind(domain.ModelKindImage) }

func (c *Catalog) Texts() []domain.ModelDescriptor { return c.byKind(domain.ModelKindText) }

func (c *Catalog) byKind(kind domain.ModelKind) []domain.ModelDescriptor {
	var out []domain.ModelDescriptor
	for _, m := range c.ordered {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// BatchCost is the informational vendor cost of a batch in USD.
func BatchCost(m domain.ModelDescriptor, batchSize int) float64 {
	return float64(batchSize) * m.CostPerUnit
}

// TokenCost prices a text generation from its usage.
func TokenCost(m domain.ModelDescriptor, inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*m.InputPricePerMTok + float64(outputTokens)*m.OutputPricePerMTok) / 1_000_000
}
