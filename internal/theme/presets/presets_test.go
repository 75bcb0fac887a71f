package presets

import "testing"

func TestAllLoadsEveryPreset(t *testing.T) {
	all := All()
	if len(all) != 4 {
		t.Fatalf("expected 4 presets, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Slug >= all[i].Slug {
			t.Fatalf("presets not sorted: %s >= %s", all[i-1].Slug, all[i].Slug)
		}
	}
}

func TestMatch(t *testing.T) {
	cases := map[string]string{
		"modern minimal garden wedding": "modern-minimal",
		"rustic barn in the forest":     "rustic-garden",
		"sunset on the beach":           "boho-sunset",
		"something nice":                "classic-elegance",
	}
	for prompt, want := range cases {
		if got := Match(prompt).Slug; got != want {
			t.Errorf("Match(%q) = %s, want %s", prompt, got, want)
		}
	}
}
