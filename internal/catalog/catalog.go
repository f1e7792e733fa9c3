// Package catalog holds the static TTS voice catalog: voice ids, friendly
// names, provider classification, and the "popular" ordering used by slash
// command autocomplete.
//
// The builtin catalog can be replaced from a YAML file (VOICES_FILE) for
// deployments that trim or extend the voice list. Lookup accepts exact ids,
// exact friendly names, and fuzzy friendly-name matches.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
	"gopkg.in/yaml.v3"
)

// Provider classifies which TTS backend serves a voice.
type Provider string

const (
	// ProviderPrimary voices are served by the primary network TTS.
	ProviderPrimary Provider = "tiktok"

	// ProviderFallback voices are served by the translator TTS.
	ProviderFallback Provider = "google"
)

// fuzzyThreshold is the minimum Jaro-Winkler score for a fuzzy name match.
const fuzzyThreshold = 0.84

// Voice is one catalog entry.
type Voice struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Provider Provider `yaml:"provider,omitempty" json:"provider"`
}

// Catalog is an immutable, ordered voice list with id and name indexes.
type Catalog struct {
	voices  []Voice
	popular []string
	byID    map[string]Voice
}

// Builtin returns the compiled-in catalog.
func Builtin() *Catalog {
	return build(builtinVoices, builtinPopular)
}

// catalogFile is the YAML override schema.
type catalogFile struct {
	Voices  []Voice  `yaml:"voices"`
	Popular []string `yaml:"popular"`
}

// LoadFile reads a YAML catalog override. Unknown YAML keys are rejected.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var cf catalogFile
	if err := dec.Decode(&cf); err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
	}

	var errs []error
	if len(cf.Voices) == 0 {
		errs = append(errs, errors.New("catalog: no voices defined"))
	}
	seen := make(map[string]bool, len(cf.Voices))
	for i := range cf.Voices {
		v := &cf.Voices[i]
		v.ID = strings.TrimSpace(v.ID)
		if v.ID == "" {
			errs = append(errs, fmt.Errorf("catalog: voice %d: empty id", i))
			continue
		}
		if seen[v.ID] {
			errs = append(errs, fmt.Errorf("catalog: duplicate voice id %q", v.ID))
		}
		seen[v.ID] = true
		if v.Name == "" {
			v.Name = v.ID
		}
		if v.Provider == "" {
			v.Provider = classify(v.ID)
		}
	}
	for _, id := range cf.Popular {
		if !seen[id] {
			errs = append(errs, fmt.Errorf("catalog: popular voice %q not in catalog", id))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return build(cf.Voices, cf.Popular), nil
}

func build(voices []Voice, popular []string) *Catalog {
	c := &Catalog{
		voices:  voices,
		popular: popular,
		byID:    make(map[string]Voice, len(voices)),
	}
	for _, v := range voices {
		c.byID[v.ID] = v
	}
	return c
}

// classify maps a voice id to its provider by the fallback provider's id
// prefix.
func classify(id string) Provider {
	if strings.HasPrefix(id, string(ProviderFallback)) {
		return ProviderFallback
	}
	return ProviderPrimary
}

// Voices returns the catalog entries in display order. The slice is shared;
// callers must not mutate it.
func (c *Catalog) Voices() []Voice {
	return c.voices
}

// IDs returns all voice ids in display order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.voices))
	for i, v := range c.voices {
		ids[i] = v.ID
	}
	return ids
}

// Has reports whether id is a catalog voice.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Get returns the voice with the given id.
func (c *Catalog) Get(id string) (Voice, bool) {
	v, ok := c.byID[id]
	return v, ok
}

// FriendlyName returns the display name for id, or id itself when unknown.
func (c *Catalog) FriendlyName(id string) string {
	if v, ok := c.byID[id]; ok {
		return v.Name
	}
	return id
}

// First returns the first catalog voice whose id differs from exclude.
// Used to compute a user default when the fallback voice is unavailable.
func (c *Catalog) First(exclude string) string {
	for _, v := range c.voices {
		if v.ID != exclude {
			return v.ID
		}
	}
	return exclude
}

// ProviderFor reports which backend serves the voice. Unknown ids are
// classified by prefix so user-supplied ids still route sensibly.
func (c *Catalog) ProviderFor(id string) Provider {
	if v, ok := c.byID[id]; ok {
		return v.Provider
	}
	return classify(id)
}

// Lookup resolves user input to a voice: exact id first, then exact
// friendly name (case-insensitive), then the best fuzzy friendly-name match
// above the similarity threshold.
func (c *Catalog) Lookup(input string) (Voice, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Voice{}, false
	}
	if v, ok := c.byID[input]; ok {
		return v, true
	}

	lower := strings.ToLower(input)
	for _, v := range c.voices {
		if strings.ToLower(v.Name) == lower || strings.ToLower(v.ID) == lower {
			return v, true
		}
	}

	var (
		best      Voice
		bestScore float64
	)
	for _, v := range c.voices {
		score := matchr.JaroWinkler(lower, strings.ToLower(v.Name), false)
		if score > bestScore {
			best, bestScore = v, score
		}
	}
	if bestScore >= fuzzyThreshold {
		return best, true
	}
	return Voice{}, false
}

// Autocomplete returns up to limit voices matching the typed prefix. An
// empty query yields the popular list; otherwise matches are substring
// matches on id or friendly name, popular voices first.
func (c *Catalog) Autocomplete(query string, limit int) []Voice {
	if limit <= 0 {
		limit = 25
	}
	popularRank := make(map[string]int, len(c.popular))
	for i, id := range c.popular {
		popularRank[id] = i
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]Voice, 0, limit)
		for _, id := range c.popular {
			if v, ok := c.byID[id]; ok {
				out = append(out, v)
				if len(out) == limit {
					break
				}
			}
		}
		return out
	}

	var popularHits, rest []Voice
	for _, v := range c.voices {
		if !strings.Contains(strings.ToLower(v.Name), query) &&
			!strings.Contains(strings.ToLower(v.ID), query) {
			continue
		}
		if _, ok := popularRank[v.ID]; ok {
			popularHits = append(popularHits, v)
		} else {
			rest = append(rest, v)
		}
	}
	sort.SliceStable(popularHits, func(i, j int) bool {
		return popularRank[popularHits[i].ID] < popularRank[popularHits[j].ID]
	})
	out := append(popularHits, rest...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
