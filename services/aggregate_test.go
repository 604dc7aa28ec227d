package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-ad-insights/models"
)

func TestCountBy(t *testing.T) {
	records := sampleRecords()

	got := CountBy(records, ByMarket)
	assert.Equal(t, []models.Count{
		{Key: "Portugal", Value: 3},
		{Key: "Germany", Value: 1},
		{Key: "Netherlands", Value: 1},
	}, got)

	total := 0
	for _, c := range got {
		total += c.Value
	}
	assert.Equal(t, len(records), total)
}

func TestCountBySkipsUnresolvedKeys(t *testing.T) {
	got := CountBy(sampleRecords(), ByVehicle)
	assert.Equal(t, []models.Count{
		{Key: "VW ID.4", Value: 3},
		{Key: "Tesla Model Y", Value: 1},
	}, got)
}

func TestCountByEmpty(t *testing.T) {
	got := CountBy([]*models.CanonicalRecord{}, ByMarket)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCrossTab(t *testing.T) {
	m := CrossTab(sampleRecords(), ByMarket, ByVehicle)

	assert.Equal(t, []string{"Portugal", "Germany"}, m.Rows)
	assert.Equal(t, []string{"VW ID.4", "Tesla Model Y"}, m.Cols)
	assert.Equal(t, [][]int{{2, 1}, {1, 0}}, m.Cells)
	assert.Equal(t, 0, m.Cell("Germany", "Tesla Model Y"))
	assert.Equal(t, 0, m.Cell("Spain", "VW ID.4"))
}

func TestCrossTabEmpty(t *testing.T) {
	m := CrossTab(nil, ByMarket, ByVehicle)
	assert.Empty(t, m.Rows)
	assert.Empty(t, m.Cols)
	assert.Empty(t, m.Cells)
}

func TestShareOf(t *testing.T) {
	records := append(sampleRecords(), &models.CanonicalRecord{ID: "6", Platform: "tiktok"})

	shares := ShareOf(records, ByPlatform)
	require.Len(t, shares, 3)

	sum := 0.0
	for _, s := range shares {
		sum += s.Percent
	}
	assert.InDelta(t, 100.0, sum, 0.01)
	assert.Equal(t, "facebook", shares[0].Key)
	assert.InDelta(t, 40.0, shares[0].Percent, 0.01)
}

func TestShareOfEmpty(t *testing.T) {
	assert.Empty(t, ShareOf([]*models.CanonicalRecord{}, ByPlatform))
}

func TestTopMentions(t *testing.T) {
	records := sampleRecords()
	mentions := []models.FeatureMention{
		{RecordID: "1", Category: "Design", Snippet: "sleek"},
		{RecordID: "3", Category: "Design", Snippet: "minimalist"},
		{RecordID: "1", Category: "Performance", Snippet: "quick"},
		{RecordID: "2", Category: "Design", Snippet: "bold"},
		{RecordID: "4", Category: "Design", Snippet: "clean"},
		{RecordID: "99", Category: "Design", Snippet: "orphan"},
	}

	groups := TopMentions(records, mentions, "Design", "All", 0)
	require.Len(t, groups, 2)
	assert.Equal(t, "Tesla Model Y", groups[0].Vehicle)
	assert.Equal(t, "VW ID.4", groups[1].Vehicle)
	assert.Len(t, groups[1].Mentions, 3)
	assert.Equal(t, "sleek", groups[1].Mentions[0].Snippet)

	limited := TopMentions(records, mentions, "Design", "", 2)
	assert.Len(t, limited[1].Mentions, 2)

	one := TopMentions(records, mentions, "Design", "vw id.4", 0)
	require.Len(t, one, 1)
	assert.Equal(t, "VW ID.4", one[0].Vehicle)

	assert.Empty(t, TopMentions(records, mentions, "Safety", "All", 0))
}
