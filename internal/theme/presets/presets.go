// Package presets embeds the built-in invitation themes.
package presets

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var files embed.FS

// Preset is one built-in theme document.
type Preset struct {
	Slug string
	Raw  json.RawMessage
}

var load = sync.OnceValues(func() ([]Preset, error) {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil, err
	}
	out := make([]Preset, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := files.ReadFile(e.Name())
		if err != nil {
			return nil, err
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("preset %s is not valid json", e.Name())
		}
		out = append(out, Preset{Slug: strings.TrimSuffix(e.Name(), ".json"), Raw: data})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
})

// All returns every preset ordered by slug. It panics if an embedded file is
// malformed, which is a build defect.
func All() []Preset {
	out, err := load()
	if err != nil {
		panic(fmt.Errorf("load presets: %w", err))
	}
	return append([]Preset(nil), out...)
}

// Get returns the preset with slug.
func Get(slug string) (Preset, bool) {
	for _, p := range All() {
		if p.Slug == slug {
			return p, true
		}
	}
	return Preset{}, false
}

var keywords = map[string][]string{
	"rustic-garden":    {"rustic", "garden", "outdoor", "barn", "forest", "green", "sage", "leaf", "leaves"},
	"modern-minimal":   {"modern", "minimal", "minimalist", "clean", "monochrome", "simple", "city"},
	"boho-sunset":      {"boho", "bohemian", "sunset", "beach", "desert", "terracotta", "golden"},
	"classic-elegance": {"classic", "elegant", "formal", "gold", "ballroom", "vintage", "royal"},
}

// Match picks the preset whose keywords best match prompt, falling back to
// classic-elegance.
func Match(prompt string) Preset {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	})
	best, bestScore := "classic-elegance", 0
	slugs := make([]string, 0, len(keywords))
	for slug := range keywords {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		score := 0
		for _, w := range words {
			for _, k := range keywords[slug] {
				if w == k {
					score++
				}
			}
		}
		if score > bestScore {
			best, bestScore = slug, score
		}
	}
	p, _ := Get(best)
	return p
}
