package jsoncfg

import "testing"

func TestGenerationRequestNormalize(t *testing.T) {
	req := GenerationRequest{
		ImageURL:  "  https://cdn.example.com/couple.jpg ",
		Style:     " watercolor ",
		Role:      " Bride ",
		ModelID:   "qwen-image-edit",
		BatchSize: 20,
	}
	req.Normalize(4, 6)
	if req.ImageURL != "https://cdn.example.com/couple.jpg" {
		t.Fatalf("ImageURL = %q", req.ImageURL)
	}
	if req.Role != "bride" {
		t.Fatalf("Role = %q, want bride", req.Role)
	}
	if req.BatchSize != 6 {
		t.Fatalf("BatchSize = %d, want 6", req.BatchSize)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
}

func TestGenerationRequestDefaults(t *testing.T) {
	req := GenerationRequest{ImageURL: "https://cdn.example.com/a.jpg", Style: "film", ModelID: "synthetic"}
	req.Normalize(0, 0)
	if req.BatchSize != DefaultBatchSize {
		t.Fatalf("BatchSize = %d, want %d", req.BatchSize, DefaultBatchSize)
	}
	if req.Role != DefaultRole {
		t.Fatalf("Role = %q, want %q", req.Role, DefaultRole)
	}
}

func TestGenerationRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  GenerationRequest
	}{
		{name: "missing image", req: GenerationRequest{Style: "film", Role: "bride", ModelID: "m", BatchSize: 1}},
		{name: "relative image", req: GenerationRequest{ImageURL: "/a.jpg", Style: "film", Role: "bride", ModelID: "m", BatchSize: 1}},
		{name: "missing style", req: GenerationRequest{ImageURL: "https://x.test/a.jpg", Role: "bride", ModelID: "m", BatchSize: 1}},
		{name: "bad role", req: GenerationRequest{ImageURL: "https://x.test/a.jpg", Style: "film", Role: "cat", ModelID: "m", BatchSize: 1}},
		{name: "missing model", req: GenerationRequest{ImageURL: "https://x.test/a.jpg", Style: "film", Role: "bride", BatchSize: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.req.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestThemeRequestValidate(t *testing.T) {
	req := ThemeRequest{
		Prompt:  "  modern minimal garden wedding ",
		ModelID: "gpt-4o-mini",
		Hints:   ThemeHints{AnimationIntensity: " Subtle "},
		SectionPlan: []SectionPlanItem{
			{Section: " Hero ", Enabled: true, Required: true},
		},
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if req.SectionPlan[0].Section != "hero" {
		t.Fatalf("section = %q, want hero", req.SectionPlan[0].Section)
	}

	req.Hints.AnimationIntensity = "explosive"
	if err := req.Validate(); err == nil {
		t.Fatalf("expected error for unsupported animation intensity")
	}
}
