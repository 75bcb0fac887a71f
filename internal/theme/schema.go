package theme

import (
	"fmt"
	"strings"

	"inviteai/internal/domain/jsoncfg"
	"inviteai/internal/theme/presets"
)

// SchemaName labels the schema in vendor requests.
const SchemaName = "invitation_theme"

func enumSchema(values ...string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func stringSchema() map[string]any {
	return map[string]any{"type": "string"}
}

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

var (
	animationValues = []string{"none", "fade-in", "slide-up", "zoom-in", "float"}
	sectionTypes    = []string{"hero", "couple", "event", "gallery", "story", "countdown", "rsvp", "guestbook", "gift", "closing"}
)

// Schema returns the JSON Schema of Document.
func Schema() map[string]any {
	return object([]string{"name", "colors", "typography", "decorations", "animation", "sections"}, map[string]any{
		"name":        stringSchema(),
		"description": stringSchema(),
		"colors": object([]string{"primary", "secondary", "accent", "background", "text"}, map[string]any{
			"primary":    stringSchema(),
			"secondary":  stringSchema(),
			"accent":     stringSchema(),
			"background": stringSchema(),
			"text":       stringSchema(),
		}),
		"typography": object([]string{"heading", "body"}, map[string]any{
			"heading":      stringSchema(),
			"body":         stringSchema(),
			"headingClass": stringSchema(),
			"bodyClass":    stringSchema(),
		}),
		"decorations": object(nil, map[string]any{
			"divider":         enumSchema("none", "line", "dots", "floral", "symbol-with-lines"),
			"ornament":        enumSchema("none", "leaves", "flowers", "rings", "hearts", "geometric"),
			"backgroundClass": stringSchema(),
		}),
		"animation": object(nil, map[string]any{
			"intensity": enumSchema("none", "subtle", "lively"),
			"animation": enumSchema(animationValues...),
		}),
		"sections": map[string]any{
			"type": "array",
			"items": object([]string{"type", "enabled", "layout"}, map[string]any{
				"type":        enumSchema(sectionTypes...),
				"enabled":     map[string]any{"type": "boolean"},
				"layout":      enumSchema("centered", "split", "stacked", "grid", "carousel", "full-bleed"),
				"alignment":   enumSchema("left", "center", "right"),
				"imageShape":  enumSchema("none", "circle", "arch", "rounded", "square"),
				"buttonStyle": enumSchema("solid", "outline", "pill", "ghost"),
				"animation":   enumSchema(animationValues...),
				"className":   stringSchema(),
			}),
		},
	})
}

const systemPrompt = `You design themes for digital wedding invitations.
Respond with a single JSON object that matches the provided schema and nothing else.
Colors are hex values like #aabbcc. Class fields hold space separated utility classes.
Only use utility classes of the same kind as the reference theme; do not invent new class names.`

// BuildPrompt renders the user message for a theme request. The preset that
// best matches the prompt is embedded as a style reference.
func BuildPrompt(req jsoncfg.ThemeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invitation brief: %s\n", req.Prompt)
	if !req.Hints.IsZero() {
		b.WriteString("Hints:\n")
		if req.Hints.Tone != "" {
			fmt.Fprintf(&b, "- tone: %s\n", req.Hints.Tone)
		}
		if req.Hints.ColorPreference != "" {
			fmt.Fprintf(&b, "- color preference: %s\n", req.Hints.ColorPreference)
		}
		if req.Hints.AnimationIntensity != "" {
			fmt.Fprintf(&b, "- animation intensity: %s\n", req.Hints.AnimationIntensity)
		}
	}
	if len(req.SectionPlan) > 0 {
		b.WriteString("Section plan (keep this order, include every required section):\n")
		for _, item := range req.SectionPlan {
			state := "optional"
			if item.Required {
				state = "required"
			}
			if !item.Enabled {
				state += ", disabled"
			}
			fmt.Fprintf(&b, "- %s (%s)", item.Section, state)
			if item.Reason != "" {
				fmt.Fprintf(&b, ": %s", item.Reason)
			}
			b.WriteByte('\n')
		}
	}
	ref := presets.Match(req.Prompt)
	fmt.Fprintf(&b, "Reference theme %q:\n%s\n", ref.Slug, string(ref.Raw))
	return b.String()
}
