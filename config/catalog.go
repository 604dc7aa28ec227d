package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// NamedEntry is a canonical name with the variants that resolve to it.
type NamedEntry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// CategoryEntry maps one feature category to its trigger keywords and to the
// section headers that imply it.
type CategoryEntry struct {
	Category string   `yaml:"category"`
	Sections []string `yaml:"sections"`
	Keywords []string `yaml:"keywords"`
}

// KeywordGroup is a label that applies to a text containing any of its
// keywords.
type KeywordGroup struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Catalog is the deployment-specific domain configuration: target markets,
// target vehicles, the feature taxonomy and the placeholder phrase list.
// Tones and Themes label whole ads; DetailExcludedSections names section
// headers whose mentions stay out of detail views.
type Catalog struct {
	TaxonomyVersion        string          `yaml:"taxonomy_version"`
	Markets                []NamedEntry    `yaml:"markets"`
	Vehicles               []NamedEntry    `yaml:"vehicles"`
	Taxonomy               []CategoryEntry `yaml:"taxonomy"`
	Placeholders           []string        `yaml:"placeholders"`
	Tones                  []KeywordGroup  `yaml:"tones"`
	Themes                 []KeywordGroup  `yaml:"themes"`
	DetailExcludedSections []string        `yaml:"detail_excluded_sections"`
}

// ErrInvalidCatalog is returned when a catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// DefaultCatalog returns the catalog embedded in the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads the catalog at path, or the embedded default when path
// is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %q: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates YAML catalog data.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the invariants the pipeline relies on.
func (c *Catalog) Validate() error {
	if strings.TrimSpace(c.TaxonomyVersion) == "" {
		return fmt.Errorf("catalog: %w: taxonomy_version is empty", ErrInvalidCatalog)
	}

	seen := make(map[string]struct{}, len(c.Taxonomy))
	for i, entry := range c.Taxonomy {
		name := strings.TrimSpace(entry.Category)
		if name == "" {
			return fmt.Errorf("catalog: %w: taxonomy entry %d has no category", ErrInvalidCatalog, i)
		}
		if strings.EqualFold(name, "Other") {
			return fmt.Errorf("catalog: %w: %q is reserved for unmatched snippets", ErrInvalidCatalog, name)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("catalog: %w: duplicate category %q", ErrInvalidCatalog, name)
		}
		seen[key] = struct{}{}
		if len(entry.Keywords) == 0 && len(entry.Sections) == 0 {
			return fmt.Errorf("catalog: %w: category %q has no keywords or sections", ErrInvalidCatalog, name)
		}
	}

	for _, table := range []struct {
		name   string
		groups []KeywordGroup
	}{{"tones", c.Tones}, {"themes", c.Themes}} {
		for i, g := range table.groups {
			if strings.TrimSpace(g.Name) == "" {
				return fmt.Errorf("catalog: %w: %s entry %d has no name", ErrInvalidCatalog, table.name, i)
			}
			if len(g.Keywords) == 0 {
				return fmt.Errorf("catalog: %w: %s entry %q has no keywords", ErrInvalidCatalog, table.name, g.Name)
			}
		}
	}

	for _, group := range [][]NamedEntry{c.Markets, c.Vehicles} {
		for i, e := range group {
			if strings.TrimSpace(e.Name) == "" {
				return fmt.Errorf("catalog: %w: entry %d has no name", ErrInvalidCatalog, i)
			}
		}
	}
	return nil
}

// MarketNames returns the canonical target market names.
func (c *Catalog) MarketNames() []string { return names(c.Markets) }

// VehicleNames returns the canonical target vehicle names.
func (c *Catalog) VehicleNames() []string { return names(c.Vehicles) }

func names(entries []NamedEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}
