// Package safelist checks AI authored theme documents for style tokens that
// no built-in preset uses. The token heuristic is approximate, so callers log
// violations for review instead of treating a pass as a security boundary.
package safelist

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"inviteai/internal/theme/presets"
)

// RootPath prefixes every violation path.
const RootPath = "theme"

// utilities are tokens allowed regardless of presets.
var utilities = []string{
	"flex", "grid", "block", "inline-block", "hidden", "relative", "absolute", "fixed", "sticky",
	"flex-row", "flex-col", "flex-wrap", "items-start", "items-center", "items-end",
	"justify-start", "justify-center", "justify-end", "justify-between", "justify-around",
	"text-left", "text-center", "text-right", "text-xs", "text-sm", "text-base", "text-lg", "text-xl",
	"text-2xl", "text-3xl", "text-4xl", "text-5xl", "text-6xl",
	"font-sans", "font-serif", "font-mono", "font-display", "font-light", "font-normal", "font-medium", "font-semibold", "font-bold",
	"leading-tight", "leading-normal", "leading-relaxed", "leading-loose",
	"tracking-tight", "tracking-normal", "tracking-wide", "tracking-widest",
	"uppercase", "lowercase", "capitalize", "italic",
	"w-full", "h-full", "min-h-screen", "max-w-sm", "max-w-md", "max-w-lg", "max-w-xl", "max-w-2xl", "max-w-3xl", "mx-auto",
	"p-2", "p-4", "p-6", "p-8", "px-4", "px-6", "px-8", "py-4", "py-8", "py-12", "py-16",
	"gap-2", "gap-4", "gap-6", "gap-8", "space-y-2", "space-y-4", "space-y-6",
	"rounded", "rounded-md", "rounded-lg", "rounded-xl", "rounded-2xl", "rounded-full",
	"shadow", "shadow-sm", "shadow-md", "shadow-lg", "border", "border-t", "border-b",
	"overflow-hidden", "object-cover", "object-center", "aspect-square", "aspect-video",
	"transition", "duration-300", "ease-in-out", "opacity-0", "opacity-100",
	"sans-serif", "serif",
}

var (
	// looksLikeToken matches tokens shaped like utility classes.
	looksLikeToken = regexp.MustCompile(`^[a-z!\[\-][a-z0-9\-:/\[\]\.!_%()'#=]*$`)
	bareWord       = regexp.MustCompile(`^[a-z]+$`)
	number         = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?(px|rem|em|%|ms|s)?$`)
	hexColor       = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	markup         = regexp.MustCompile(`^[\p{P}\p{S}]+$`)
)

// Result is the outcome of Check. Violations are "path: \"token\"" strings.
type Result struct {
	Valid      bool     `json:"valid"`
	Violations []string `json:"violations,omitempty"`
}

// Safelist is immutable after construction and safe for concurrent use.
type Safelist struct {
	allowed map[string]struct{}
}

// New builds an allowlist from every whitespace token of every string leaf in
// docs, plus the fixed utility list and extra.
func New(docs []json.RawMessage, extra ...string) (*Safelist, error) {
	s := &Safelist{allowed: make(map[string]struct{}, 512)}
	for _, t := range utilities {
		s.allowed[t] = struct{}{}
	}
	for _, t := range extra {
		for _, f := range strings.Fields(t) {
			s.allowed[f] = struct{}{}
		}
	}
	for i, raw := range docs {
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("safelist: document %d: %w", i, err)
		}
		collect(doc, s.allowed)
	}
	return s, nil
}

var defaultSafelist = sync.OnceValue(func() *Safelist {
	all := presets.All()
	docs := make([]json.RawMessage, 0, len(all))
	for _, p := range all {
		docs = append(docs, p.Raw)
	}
	s, err := New(docs)
	if err != nil {
		panic(err)
	}
	return s
})

// Default returns the process wide safelist built from the embedded presets.
func Default() *Safelist {
	return defaultSafelist()
}

// Allows reports whether token is on the allowlist.
func (s *Safelist) Allows(token string) bool {
	_, ok := s.allowed[token]
	return ok
}

// Size is the number of allowed tokens.
func (s *Safelist) Size() int {
	return len(s.allowed)
}

// Check walks doc and reports tokens that look like style tokens but are not
// allowed. doc may be raw JSON, a decoded value, or any JSON-marshalable
// struct.
func (s *Safelist) Check(doc any) Result {
	value, err := toGeneric(doc)
	if err != nil {
		return Result{Violations: []string{fmt.Sprintf("%s: unreadable document: %v", RootPath, err)}}
	}
	var violations []string
	s.walk(RootPath, value, &violations)
	return Result{Valid: len(violations) == 0, Violations: violations}
}

func (s *Safelist) walk(path string, v any, out *[]string) {
	switch typed := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for k := range typed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			s.walk(path+"."+k, typed[k], out)
		}
	case []any:
		for i, item := range typed {
			s.walk(fmt.Sprintf("%s[%d]", path, i), item, out)
		}
	case string:
		for _, token := range strings.Fields(typed) {
			if IsStyleToken(token) && !s.Allows(token) {
				*out = append(*out, fmt.Sprintf("%s: %q", path, token))
			}
		}
	}
}

// IsStyleToken reports whether token is shaped like a style class rather
// than prose, a number, a hex color or a markup symbol.
func IsStyleToken(token string) bool {
	switch {
	case token == "":
		return false
	case bareWord.MatchString(token):
		return false
	case number.MatchString(token):
		return false
	case hexColor.MatchString(token):
		return false
	case markup.MatchString(token):
		return false
	case !strings.ContainsAny(token, "-:/[]!_"):
		return false
	}
	return looksLikeToken.MatchString(token)
}

func collect(v any, into map[string]struct{}) {
	switch typed := v.(type) {
	case map[string]any:
		for _, child := range typed {
			collect(child, into)
		}
	case []any:
		for _, child := range typed {
			collect(child, into)
		}
	case string:
		for _, f := range strings.Fields(typed) {
			into[f] = struct{}{}
		}
	}
}

func toGeneric(doc any) (any, error) {
	switch typed := doc.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return decode(typed)
	case []byte:
		return decode(typed)
	case map[string]any, []any, string:
		return typed, nil
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return nil, err
		}
		return decode(raw)
	}
}

func decode(raw []byte) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
