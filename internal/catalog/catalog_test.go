package catalog

import (
	"errors"
	"math"
	"testing"

	"inviteai/internal/domain"
)

func TestResolve(t *testing.T) {
	c := New()
	tests := []struct {
		in   string
		want string
	}{
		{in: "qwen-image-edit", want: "qwen-image-edit"},
		{in: "  Nano-Banana ", want: "gemini-2.5-flash-image"},
		{in: "gpt4omini", want: "gpt-4o-mini"},
		{in: "synthetic", want: "synthetic"},
	}
	for _, tc := range tests {
		m, err := c.Resolve(tc.in)
		if err != nil {
			t.Fatalf("Resolve(%q) error: %v", tc.in, err)
		}
		if m.ID != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.in, m.ID, tc.want)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := New().Resolve("dall-e-9")
	if !errors.Is(err, domain.ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
}

func TestResolveKindMismatch(t *testing.T) {
	c := New()
	if _, err := c.ResolveKind("gpt-4o-mini", domain.ModelKindImage); !errors.Is(err, domain.ErrUnknownModel) {
		t.Fatalf("text model resolved as image: %v", err)
	}
	if _, err := c.ResolveKind(DefaultImageModel, domain.ModelKindImage); err != nil {
		t.Fatalf("default image model: %v", err)
	}
	if _, err := c.ResolveKind(DefaultTextModel, domain.ModelKindText); err != nil {
		t.Fatalf("default text model: %v", err)
	}
}

func TestEncodingsCoverBothShapes(t *testing.T) {
	seen := map[domain.OutputEncoding]bool{}
	for _, m := range New().Images() {
		seen[m.OutputEncoding] = true
		if m.ProviderType == domain.ProviderOpenAI {
			t.Fatalf("image list contains text provider %q", m.ID)
		}
	}
	if !seen[domain.EncodingURL] || !seen[domain.EncodingInline] {
		t.Fatalf("expected url and inline image models, got %v", seen)
	}
}

func TestNewWithRejectsDuplicates(t *testing.T) {
	_, err := NewWith([]domain.ModelDescriptor{{ID: "a"}, {ID: "a"}})
	if err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestCosts(t *testing.T) {
	m := domain.ModelDescriptor{CostPerUnit: 0.05, InputPricePerMTok: 1, OutputPricePerMTok: 2}
	if got := BatchCost(m, 4); math.Abs(got-0.2) > 1e-9 {
		t.Fatalf("BatchCost = %v", got)
	}
	if got := TokenCost(m, 1000, 500); math.Abs(got-0.002) > 1e-9 {
		t.Fatalf("TokenCost = %v", got)
	}
}
