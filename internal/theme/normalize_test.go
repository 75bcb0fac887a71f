package theme

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalEnum(t *testing.T) {
	cases := []struct {
		key, in, want string
	}{
		{"divider", "Symbol_With_Lines", "symbol-with-lines"},
		{"divider", "flowers", "floral"},
		{"ornament", "flowers", "flowers"},
		{"ornament", "Floral", "flowers"},
		{"layout", "Two Column", "split"},
		{"layout", "centre", "centered"},
		{"animation", "fadeIn", "fade-in"},
		{"animation", "ZOOM", "zoom-in"},
		{"alignment", " Center ", "center"},
		{"layout", "mosaic", "mosaic"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"/"+tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, canonicalEnum(tc.key, tc.in))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := `{
		"name": "Fade In Story",
		"decorations": {"divider": "symbol lines", "ornament": "Leaf"},
		"animation": {"intensity": "Medium", "animation": "slideUp"},
		"sections": [
			{"type": "hero", "layout": "full_width", "imageShape": "Round", "animation": "fade"},
			{"type": "rsvp", "layout": "stack", "buttonStyle": "rounded", "className": "flex gap-4"}
		]
	}`
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))

	once := Normalize(v)
	twice := Normalize(once)
	assert.Equal(t, once, twice)

	doc := once.(map[string]any)
	assert.Equal(t, "Fade In Story", doc["name"])
	sections := doc["sections"].([]any)
	assert.Equal(t, "full-bleed", sections[0].(map[string]any)["layout"])
	assert.Equal(t, "fade-in", sections[0].(map[string]any)["animation"])
	assert.Equal(t, "stacked", sections[1].(map[string]any)["layout"])
	assert.Equal(t, "flex gap-4", sections[1].(map[string]any)["className"])
}

func TestNormalizeEveryAliasIsStable(t *testing.T) {
	for key, aliases := range enumAliases {
		for from, to := range aliases {
			assert.Equal(t, to, canonicalEnum(key, from), "%s: %s", key, from)
			assert.Equal(t, to, canonicalEnum(key, to), "%s: %s is not canonical", key, to)
		}
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := map[string]any{"layout": "Center", "nested": []any{map[string]any{"alignment": "LEFT"}}}
	out := Normalize(in).(map[string]any)
	assert.Equal(t, "Center", in["layout"])
	assert.Equal(t, "centered", out["layout"])
	assert.Equal(t, "LEFT", in["nested"].([]any)[0].(map[string]any)["alignment"])
}
