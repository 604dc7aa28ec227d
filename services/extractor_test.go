package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-ad-insights/models"
)

func extract(t *testing.T, e *Extractor, text string) []models.FeatureMention {
	t.Helper()
	return e.Extract(&models.CanonicalRecord{ID: "r1", AnalysisText: text})
}

func categoriesOf(mentions []models.FeatureMention) []string {
	out := make([]string, 0, len(mentions))
	for _, m := range mentions {
		out = append(out, m.Category)
	}
	return out
}

func TestExtractSectionedText(t *testing.T) {
	e := testExtractor(t)

	got := extract(t, e, "**Design:** sleek and modern.")
	require.Len(t, got, 1)
	assert.Equal(t, models.FeatureMention{
		RecordID: "r1", Category: "Design", Section: "Design", Snippet: "sleek and modern",
	}, got[0])

	got = extract(t, e, "**Performance:** fast acceleration.")
	require.Len(t, got, 1)
	assert.Equal(t, "Performance", got[0].Category)
}

func TestExtractPlaceholdersYieldNothing(t *testing.T) {
	e := testExtractor(t)

	for _, text := range []string{
		"Not specified",
		"not specified.",
		"**Design:** Not specified.",
		"**Safety:** Not discussed in the ad.\n**Value:** None",
		"N/A",
		"   ",
		"",
	} {
		assert.Empty(t, extract(t, e, text), "%q", text)
	}
}

func TestExtractKeepsSentencesMentioningAbsence(t *testing.T) {
	e := testExtractor(t)

	tests := []struct {
		text string
		want []string
	}{
		{"Sleek design, though charging times are not mentioned.", []string{"Range & Charging", "Design"}},
		{"Long range battery with no specific price shown.", []string{"Range & Charging", "Value"}},
		{"None of the rivals match its 500 km range.", []string{"Range & Charging"}},
	}

	for _, tt := range tests {
		got := extract(t, e, tt.text)
		require.Len(t, got, len(tt.want), tt.text)
		assert.Equal(t, tt.want, categoriesOf(got), tt.text)
		assert.Equal(t, strings.TrimSuffix(tt.text, "."), got[0].Snippet)
	}
}

func TestExtractKeepsNumericSnippets(t *testing.T) {
	e := testExtractor(t)

	got := extract(t, e, "**Pricing:** 39.990 €")
	require.Len(t, got, 1)
	assert.Equal(t, "Value", got[0].Category)
	assert.Equal(t, "39.990 €", got[0].Snippet)

	got = extract(t, e, "**Range:** 500")
	require.Len(t, got, 1)
	assert.Equal(t, "Range & Charging", got[0].Category)
	assert.Equal(t, "500", got[0].Snippet)
}

func TestExtractKeepsDottedModelNames(t *testing.T) {
	e := testExtractor(t)

	got := extract(t, e, "**Technology:** Infotainment in the VW ID.4 has a 12-inch touchscreen. Range is 3.5 hours of driving.")
	require.NotEmpty(t, got)
	assert.Equal(t, "Infotainment in the VW ID.4 has a 12-inch touchscreen", got[0].Snippet)
	assert.Equal(t, "Technology", got[0].Category)
}

func TestExtractMultipleCategories(t *testing.T) {
	e := testExtractor(t)

	got := extract(t, e, "Long range battery and a sleek design.")
	assert.Equal(t, []string{"Range & Charging", "Design"}, categoriesOf(got))
	for _, m := range got {
		assert.Equal(t, models.UnsectionedLabel, m.Section)
	}
}

func TestExtractOtherCategory(t *testing.T) {
	e := testExtractor(t)

	got := extract(t, e, "Family friendly hatchback.")
	require.Len(t, got, 1)
	assert.Equal(t, models.OtherCategory, got[0].Category)
}

func TestExtractDeduplicatesWithinRecord(t *testing.T) {
	e := testExtractor(t)

	got := extract(t, e, "**Design:** Sleek look. sleek look\n**Styling:** SLEEK LOOK!")
	require.Len(t, got, 1)
	assert.Equal(t, "Sleek look", got[0].Snippet)
}

func TestExtractNumberedList(t *testing.T) {
	e := testExtractor(t)

	got := extract(t, e, "**Exterior Design:**\n1. Sleek lines\n2. LED lights")
	require.Len(t, got, 2)
	assert.Equal(t, "Sleek lines", got[0].Snippet)
	assert.Equal(t, "LED lights", got[1].Snippet)
	assert.Equal(t, []string{"Design", "Design"}, categoriesOf(got))
	assert.Equal(t, "Exterior Design", got[1].Section)
}

func TestExtractHeaderVariants(t *testing.T) {
	e := testExtractor(t)

	got := extract(t, e, "Intro about the car. **Range**: 500 km\n**Visual Elements:** bright colours")
	assert.Equal(t, []string{models.OtherCategory, "Range & Charging", "Design"}, categoriesOf(got))
	assert.Equal(t, []string{models.UnsectionedLabel, "Range", "Visual Elements"},
		[]string{got[0].Section, got[1].Section, got[2].Section})
}

func TestExtractCompleteness(t *testing.T) {
	e := testExtractor(t)

	for _, text := range []string{
		"Something entirely unrelated",
		"**Mood:** calm",
		"**Design:** sleek. **Value:** Not specified",
		"Nonetheless stylish",
	} {
		assert.NotEmpty(t, extract(t, e, text), "%q", text)
	}
}

func TestIsPlaceholder(t *testing.T) {
	tax := NewTaxonomy(testCatalog(t))

	tests := []struct {
		snippet string
		want    bool
	}{
		{"Not specified", true},
		{"Safety features not mentioned", true},
		{"NOT DISCUSSED IN THE AD", true},
		{"None.", true},
		{"none highlighted", true},
		{"n/a", true},
		{"Nonetheless stylish", false},
		{"Sleek design, though charging times are not mentioned", false},
		{"Long range battery with no specific price shown", false},
		{"None of the rivals match its range", false},
		{"Noted for range", false},
		{"Sleek", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tax.IsPlaceholder(tt.snippet), tt.snippet)
	}
}

func TestTaxonomyCategories(t *testing.T) {
	tax := NewTaxonomy(testCatalog(t))

	cats := tax.Categories()
	assert.Equal(t, "Range & Charging", cats[0])
	assert.Equal(t, models.OtherCategory, cats[len(cats)-1])
	assert.True(t, tax.HasCategory("Design"))
	assert.True(t, tax.HasCategory(models.OtherCategory))
	assert.False(t, tax.HasCategory("Colour"))
}

func TestMentionIndex(t *testing.T) {
	e := testExtractor(t)
	idx := NewMentionIndex()
	rec := &models.CanonicalRecord{ID: "r1", AnalysisText: "**Design:** sleek."}

	first := idx.For(rec, e)
	second := idx.For(rec, e)
	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, idx.Len())

	catalog := testCatalog(t)
	catalog.TaxonomyVersion = "next"
	next := NewExtractor(NewTaxonomy(catalog), newTestLogger())

	idx.For(&models.CanonicalRecord{ID: "r2", AnalysisText: "fast"}, next)
	assert.Equal(t, 1, idx.Len(), "a new taxonomy version drops earlier entries")
}

func TestMentionIndexCollectKeepsRecordOrder(t *testing.T) {
	e := testExtractor(t)
	idx := NewMentionIndex()

	records := []*models.CanonicalRecord{
		{ID: "b", AnalysisText: "**Performance:** fast"},
		{ID: "a", AnalysisText: "**Design:** sleek"},
		{ID: "c", AnalysisText: "Not specified"},
	}

	got := idx.Collect(records, e)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].RecordID)
	assert.Equal(t, "a", got[1].RecordID)
}

func TestExtractCategoriesComeFromTaxonomy(t *testing.T) {
	e := testExtractor(t)
	texts := []string{
		"**Brand & Product Focus:** Volkswagen electric family. **Price and Value:** lease from 299€ per month; free home charger",
		"**Safety & Assistance:** lane keeping, collision warning\n- ncap five stars\n**Eco-Friendly Features:** recycled materials",
		"Plain text with nothing in particular. Another line!",
	}

	for _, text := range texts {
		mentions := extract(t, e, text)
		require.NotEmpty(t, mentions, text)
		for _, m := range mentions {
			assert.True(t, e.Taxonomy().HasCategory(m.Category), "%q is not a taxonomy category", m.Category)
		}
	}
}
