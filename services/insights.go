package services

import (
	"sort"

	"ev-ad-insights/models"
)

// Summarize builds the headline summary of filtered out of a dataset holding
// total records. The date range spans known start dates only.
func Summarize(total int, filtered []*models.CanonicalRecord, malformed int) *models.Summary {
	return &models.Summary{
		TotalCount:        total,
		FilteredCount:     len(filtered),
		DateRange:         startDateRange(filtered),
		UniqueVehicles:    len(CountBy(filtered, ByVehicle)),
		UniqueAdvertisers: len(CountBy(filtered, ByAdvertiser)),
		MalformedRows:     malformed,
	}
}

// MarketSummary returns per-market statistics ordered by ad count.
func MarketSummary(records []*models.CanonicalRecord) []models.MarketStats {
	groups := groupBy(records, ByMarket)
	out := make([]models.MarketStats, 0, len(groups))

	for _, c := range CountBy(records, ByMarket) {
		members := groups[c.Key]
		out = append(out, models.MarketStats{
			Market:            c.Key,
			TotalAds:          c.Value,
			UniqueVehicles:    len(CountBy(members, ByVehicle)),
			UniqueAdvertisers: len(CountBy(members, ByAdvertiser)),
			DateRange:         startDateRange(members),
		})
	}
	return out
}

// VehicleAnalysis returns per-vehicle statistics ordered by ad count. Records
// with an unknown vehicle are skipped.
func VehicleAnalysis(records []*models.CanonicalRecord) []models.VehicleStats {
	groups := groupBy(records, ByVehicle)
	out := make([]models.VehicleStats, 0, len(groups))

	for _, c := range CountBy(records, ByVehicle) {
		members := groups[c.Key]

		advertisers := make([]string, 0)
		for _, a := range CountBy(members, ByAdvertiser) {
			advertisers = append(advertisers, a.Key)
		}
		sort.Strings(advertisers)

		out = append(out, models.VehicleStats{
			Vehicle:         c.Key,
			TotalAds:        c.Value,
			MarketBreakdown: CountBy(members, ByMarket),
			Advertisers:     advertisers,
		})
	}
	return out
}

func groupBy(records []*models.CanonicalRecord, key KeyFunc[*models.CanonicalRecord]) map[string][]*models.CanonicalRecord {
	groups := make(map[string][]*models.CanonicalRecord)
	for _, r := range records {
		if k, ok := key(r); ok {
			groups[k] = append(groups[k], r)
		}
	}
	return groups
}

func startDateRange(records []*models.CanonicalRecord) models.DateRange {
	var dr models.DateRange
	for _, r := range records {
		if !r.HasStartDate() {
			continue
		}
		if !dr.Known || r.StartDate.Before(dr.Start) {
			dr.Start = r.StartDate
		}
		if !dr.Known || r.StartDate.After(dr.End) {
			dr.End = r.StartDate
		}
		dr.Known = true
	}
	return dr
}
