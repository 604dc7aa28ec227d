package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ev-ad-insights/config"
	"ev-ad-insights/models"
	"ev-ad-insights/utils"
)

func newTestLogger() *utils.Logger {
	return utils.NewNopLogger()
}

func testCatalog(t *testing.T) *config.Catalog {
	t.Helper()
	c, err := config.DefaultCatalog()
	require.NoError(t, err)
	return c
}

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(NewTaxonomy(testCatalog(t)), newTestLogger())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// sampleRecords spans two markets, three vehicles and two platforms.
func sampleRecords() []*models.CanonicalRecord {
	return []*models.CanonicalRecord{
		{ID: "1", Row: 0, Market: "Portugal", Vehicle: "VW ID.4", Advertiser: "Volkswagen PT", Platform: "facebook", StartDate: date(2025, 1, 10)},
		{ID: "2", Row: 1, Market: "Germany", Vehicle: "VW ID.4", Advertiser: "Volkswagen DE", Platform: "google", StartDate: date(2025, 2, 3)},
		{ID: "3", Row: 2, Market: "Portugal", Vehicle: "Tesla Model Y", Advertiser: "Tesla", Platform: "facebook", StartDate: date(2025, 1, 22)},
		{ID: "4", Row: 3, Market: "Portugal", Vehicle: "VW ID.4", Advertiser: "Volkswagen PT", Platform: "google"},
		{ID: "5", Row: 4, Market: "Netherlands", Vehicle: models.UnknownVehicle, Advertiser: "Dealer NL", Platform: UnknownPlatform},
	}
}

// scenarioRows are merged-schema rows: two Portugal ads with one feature
// each and a Germany ad whose analysis is a placeholder.
func scenarioRows() []models.RawRecord {
	return []models.RawRecord{
		{
			"source_platform": "facebook", "ad_archive_id": "fb-1", "country": "Portugal",
			"matched_cars": "VW ID.4", "advertiser_name": "Volkswagen PT", "start_date": "2025-01-10",
			"openai_analysis": "**Design:** sleek and modern.",
		},
		{
			"source_platform": "google", "ad_archive_id": "g-1", "country": "Germany",
			"matched_cars": "VW ID.4", "advertiser_name": "Volkswagen DE", "start_date": "2025-02-03",
			"openai_analysis": "Not specified",
		},
		{
			"source_platform": "facebook", "ad_archive_id": "fb-2", "country": "Portugal",
			"matched_cars": "Tesla Model Y", "advertiser_name": "Tesla", "start_date": "2025-01-22",
			"openai_analysis": "**Performance:** fast acceleration.",
		},
	}
}
