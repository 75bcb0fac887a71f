package theme

import (
	"strings"
	"unicode"
)

// enumKeys are the document keys whose values are closed enums.
var enumKeys = map[string]struct{}{
	"divider":     {},
	"layout":      {},
	"animation":   {},
	"ornament":    {},
	"alignment":   {},
	"imageShape":  {},
	"buttonStyle": {},
	"intensity":   {},
}

// enumAliases corrects spellings models emit for canonical values. Keys are
// already lowercased and kebab-cased.
var enumAliases = map[string]map[string]string{
	"divider": {
		"symbol-lines": "symbol-with-lines",
		"symbol":       "symbol-with-lines",
		"lines":        "line",
		"dotted":       "dots",
		"flower":       "floral",
		"flowers":      "floral",
	},
	"layout": {
		"center":     "centered",
		"centre":     "centered",
		"centred":    "centered",
		"two-column": "split",
		"columns":    "split",
		"stack":      "stacked",
		"vertical":   "stacked",
		"slider":     "carousel",
		"fullbleed":  "full-bleed",
		"full-width": "full-bleed",
	},
	"animation": {
		"fade":     "fade-in",
		"fadein":   "fade-in",
		"slide":    "slide-up",
		"slideup":  "slide-up",
		"zoom":     "zoom-in",
		"zoomin":   "zoom-in",
		"floating": "float",
	},
	"ornament": {
		"leaf":    "leaves",
		"flower":  "flowers",
		"floral":  "flowers",
		"ring":    "rings",
		"heart":   "hearts",
		"shapes":  "geometric",
		"minimal": "none",
	},
	"alignment": {
		"centre":   "center",
		"centered": "center",
		"middle":   "center",
		"start":    "left",
		"end":      "right",
	},
	"imageShape": {
		"round":      "rounded",
		"circular":   "circle",
		"arched":     "arch",
		"square-ish": "square",
	},
	"buttonStyle": {
		"filled":   "solid",
		"outlined": "outline",
		"rounded":  "pill",
		"text":     "ghost",
	},
	"intensity": {
		"low":    "subtle",
		"light":  "subtle",
		"medium": "subtle",
		"high":   "lively",
		"strong": "lively",
		"off":    "none",
	},
}

// Normalize rewrites enum values in a decoded JSON document to their
// canonical spelling. It returns a new value and is idempotent.
func Normalize(v any) any {
	return normalize("", v)
}

func normalize(key string, v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, child := range typed {
			out[k] = normalize(k, child)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, child := range typed {
			out[i] = normalize(key, child)
		}
		return out
	case string:
		if _, ok := enumKeys[key]; !ok {
			return typed
		}
		return canonicalEnum(key, typed)
	default:
		return v
	}
}

func canonicalEnum(key, value string) string {
	token := kebab(value)
	if alias, ok := enumAliases[key][token]; ok {
		return alias
	}
	return token
}

// kebab lowercases value and joins words with single hyphens, so
// "symbol_with_lines", "Symbol With Lines" and "symbolWithLines" agree.
func kebab(value string) string {
	var b strings.Builder
	prevLower := false
	pendingSep := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r == '_' || r == '-' || unicode.IsSpace(r):
			pendingSep = b.Len() > 0
			prevLower = false
			continue
		case unicode.IsUpper(r):
			if prevLower {
				pendingSep = true
			}
			r = unicode.ToLower(r)
			prevLower = false
		default:
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
		if pendingSep {
			b.WriteByte('-')
			pendingSep = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
