package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	assert.NotEmpty(t, c.TaxonomyVersion)
	assert.Contains(t, c.MarketNames(), "Portugal")
	assert.Contains(t, c.VehicleNames(), "VW ID.4")
	assert.NotEmpty(t, c.Placeholders)
	assert.Equal(t, "Range & Charging", c.Taxonomy[0].Category)
	assert.NotEmpty(t, c.Tones)
	assert.NotEmpty(t, c.Themes)
	assert.Contains(t, c.DetailExcludedSections, "dealership")
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing version", "taxonomy:\n  - category: Design\n    keywords: [sleek]\n"},
		{"reserved other", "taxonomy_version: v1\ntaxonomy:\n  - category: Other\n    keywords: [x]\n"},
		{"duplicate category", "taxonomy_version: v1\ntaxonomy:\n  - category: Design\n    keywords: [a]\n  - category: design\n    keywords: [b]\n"},
		{"empty category", "taxonomy_version: v1\ntaxonomy:\n  - category: Design\n"},
		{"unnamed market", "taxonomy_version: v1\nmarkets:\n  - aliases: [PT]\n"},
		{"unnamed tone", "taxonomy_version: v1\ntones:\n  - keywords: [sleek]\n"},
		{"theme without keywords", "taxonomy_version: v1\nthemes:\n  - name: City\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := "taxonomy_version: test-1\nmarkets:\n  - name: Spain\n    aliases: [ES]\ntaxonomy:\n  - category: Design\n    keywords: [sleek]\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "test-1", c.TaxonomyVersion)
	assert.Equal(t, []string{"Spain"}, c.MarketNames())
}

func TestLoadCatalogMissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigDSN(t *testing.T) {
	c := &Config{
		PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "ev", PostgresSSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=ev sslmode=disable", c.DSN())
}

func TestLoadReadsEnv(t *testing.T) {
	t.Setenv("DATA_SCHEMA", "facebook")
	t.Setenv("DETAIL_LIMIT", "12")
	t.Setenv("MAX_CONCURRENCY", "not-a-number")

	c := Load()
	assert.Equal(t, "facebook", c.DataSchema)
	assert.Equal(t, 12, c.DetailLimit)
	assert.Equal(t, 4, c.MaxConcurrency)
}
