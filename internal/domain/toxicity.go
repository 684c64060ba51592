package domain

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed toxicity.yaml
var toxicityYAML []byte

// ToxicityEntry is one row of the toxicity reference table.
type ToxicityEntry struct {
	ChemicalName   string
	ToxicityWeight float64
	IsCarcinogen   bool
	IsHeavyMetal   bool
}

// ToxicityTable resolves chemical names to toxicity entries. Lookup is total:
// unmatched names resolve to a default entry carrying the table's median
// weight, so an unmapped chemical never drops out of scoring or crashes it.
type ToxicityTable struct {
	entries      map[string]ToxicityEntry // canonical name -> entry
	aliases      map[string]string        // canonical alias -> canonical name
	keys         []string                 // canonical names, longest first, for substring fallback
	defaultEntry ToxicityEntry
	cache        *lookupCache
}

type toxicityFile struct {
	Chemicals []struct {
		Name       string   `yaml:"name"`
		Weight     float64  `yaml:"weight"`
		Carcinogen bool     `yaml:"carcinogen"`
		HeavyMetal bool     `yaml:"heavy_metal"`
		Aliases    []string `yaml:"aliases"`
	} `yaml:"chemicals"`
}

// LoadToxicityTable parses the embedded reference YAML and builds the lookup
// structures. Called once at process start.
func LoadToxicityTable() (*ToxicityTable, error) {
	return parseToxicityTable(toxicityYAML)
}

func parseToxicityTable(raw []byte) (*ToxicityTable, error) {
	var file toxicityFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse toxicity table: %w", err)
	}
	if len(file.Chemicals) == 0 {
		return nil, fmt.Errorf("toxicity table is empty")
	}

	t := &ToxicityTable{
		entries: make(map[string]ToxicityEntry, len(file.Chemicals)),
		aliases: make(map[string]string),
		cache:   newLookupCache(4096),
	}

	weights := make([]float64, 0, len(file.Chemicals))
	for _, c := range file.Chemicals {
		key := CanonicalChemicalName(c.Name)
		if key == "" {
			return nil, fmt.Errorf("toxicity table: entry with empty name")
		}
		if c.Weight < 0 || c.Weight > 100 {
			return nil, fmt.Errorf("toxicity table: %q weight %v out of [0,100]", c.Name, c.Weight)
		}
		if _, dup := t.entries[key]; dup {
			return nil, fmt.Errorf("toxicity table: duplicate entry %q", key)
		}
		t.entries[key] = ToxicityEntry{
			ChemicalName:   key,
			ToxicityWeight: c.Weight,
			IsCarcinogen:   c.Carcinogen,
			IsHeavyMetal:   c.HeavyMetal,
		}
		for _, a := range c.Aliases {
			t.aliases[CanonicalChemicalName(a)] = key
		}
		t.keys = append(t.keys, key)
		weights = append(weights, c.Weight)
	}

	// Longest keys first so "hexavalent chromium" wins over "chromium"-style
	// prefixes in the substring fallback.
	sort.Slice(t.keys, func(i, j int) bool {
		if len(t.keys[i]) != len(t.keys[j]) {
			return len(t.keys[i]) > len(t.keys[j])
		}
		return t.keys[i] < t.keys[j]
	})

	t.defaultEntry = ToxicityEntry{
		ChemicalName:   "unknown",
		ToxicityWeight: median(weights),
	}
	return t, nil
}

// DefaultEntry returns the conservative entry assigned to unmapped chemicals.
func (t *ToxicityTable) DefaultEntry() ToxicityEntry {
	return t.defaultEntry
}

// Lookup resolves a chemical name. Resolution order: exact canonical match,
// curated alias, substring containment against known names, default entry.
func (t *ToxicityTable) Lookup(chemicalName string) ToxicityEntry {
	key := CanonicalChemicalName(chemicalName)
	if key == "" {
		return t.defaultEntry
	}

	if entry, ok := t.entries[key]; ok {
		return entry
	}
	if canonical, ok := t.aliases[key]; ok {
		return t.entries[canonical]
	}
	if entry, ok := t.cache.get(key); ok {
		return entry
	}

	// Substring fallback handles ChemTRAC's compound listings, e.g.
	// "chromium, hexavalent (and its compounds)".
	entry := t.defaultEntry
	for _, known := range t.keys {
		if strings.Contains(key, known) {
			entry = t.entries[known]
			break
		}
	}
	t.cache.put(key, entry)
	return entry
}

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	punctuationRe   = regexp.MustCompile(`[^a-z0-9.\s]`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// CanonicalChemicalName normalizes a chemical name for table matching: trim,
// lowercase, drop parenthetical qualifiers, strip punctuation, collapse
// whitespace. "Chromium (VI) compounds" and "chromium compounds" both reduce
// to a comparable key.
func CanonicalChemicalName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" {
		return ""
	}
	stripped := parentheticalRe.ReplaceAllString(s, " ")
	stripped = punctuationRe.ReplaceAllString(stripped, " ")
	stripped = whitespaceRe.ReplaceAllString(stripped, " ")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		// Name was nothing but qualifiers; fall back to a punctuation-only strip.
		s = punctuationRe.ReplaceAllString(s, " ")
		return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
	}
	return stripped
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
