package translation

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Entry holds the texts for a single language.
type Entry struct {
	States    map[string]string `yaml:"states"`
	Positions map[string]string `yaml:"positions"`
}

// Table maps a language code to its entry.
type Table map[string]Entry

// Catalog is an immutable translation lookup.
//
// Thread Safety:
//   - Safe for concurrent reads; there are no writers after construction.
type Catalog struct {
	table Table
}

// NewCatalog builds a catalog from a copy of table.
func NewCatalog(table Table) *Catalog {
	return &Catalog{table: copyTable(table)}
}

// Default returns a catalog containing the built-in languages.
func Default() *Catalog {
	return NewCatalog(builtin)
}

// LoadFile returns the built-in catalog overlaid with the YAML file at path.
// Entries in the file replace built-in texts key by key; new languages are added.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading translations file: %w", err)
	}

	var overlay Table
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parsing translations file: %w", err)
	}

	table := copyTable(builtin)
	for lang, entry := range overlay {
		merged := table[lang]
		merged.States = mergeTexts(merged.States, entry.States)
		merged.Positions = mergeTexts(merged.Positions, entry.Positions)
		table[lang] = merged
	}

	return &Catalog{table: table}, nil
}

// Describe returns the text for a state key in the given language.
func (c *Catalog) Describe(language, stateKey string) (string, error) {
	entry, ok := c.table[language]
	if !ok {
		return "", fmt.Errorf("%w: language %q", ErrMissingTranslation, language)
	}
	text, ok := entry.States[stateKey]
	if !ok {
		return "", fmt.Errorf("%w: state %q in %q", ErrMissingTranslation, stateKey, language)
	}
	return text, nil
}

// DescribePosition returns the text for a window position code in the given language.
func (c *Catalog) DescribePosition(language, positionCode string) (string, error) {
	entry, ok := c.table[language]
	if !ok {
		return "", fmt.Errorf("%w: language %q", ErrMissingTranslation, language)
	}
	text, ok := entry.Positions[positionCode]
	if !ok {
		return "", fmt.Errorf("%w: position %q in %q", ErrMissingTranslation, positionCode, language)
	}
	return text, nil
}

// Languages returns the language codes in the catalog, sorted.
func (c *Catalog) Languages() []string {
	langs := make([]string, 0, len(c.table))
	for lang := range c.table {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// HasLanguage reports whether the catalog has any entry for language.
func (c *Catalog) HasLanguage(language string) bool {
	_, ok := c.table[language]
	return ok
}

func copyTable(src Table) Table {
	dst := make(Table, len(src))
	for lang, entry := range src {
		dst[lang] = Entry{
			States:    mergeTexts(nil, entry.States),
			Positions: mergeTexts(nil, entry.Positions),
		}
	}
	return dst
}

// mergeTexts returns a new map holding base overlaid with override.
func mergeTexts(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
