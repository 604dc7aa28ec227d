package models

import "time"

// Count is one entry of an ordered key → count mapping.
type Count struct {
	Key   string
	Value int
}

// Share is one entry of a key → percentage mapping. Percent is relative to
// the number of items whose key resolved.
type Share struct {
	Key     string
	Count   int
	Percent float64
}

// Matrix is a zero-filled cross tabulation. Cells[i][j] counts items with
// row key Rows[i] and column key Cols[j].
type Matrix struct {
	Rows  []string
	Cols  []string
	Cells [][]int
}

// Cell returns the count at (row, col), or 0 when either key is absent.
func (m *Matrix) Cell(row, col string) int {
	ri, ci := -1, -1
	for i, r := range m.Rows {
		if r == row {
			ri = i
			break
		}
	}
	for j, c := range m.Cols {
		if c == col {
			ci = j
			break
		}
	}
	if ri < 0 || ci < 0 {
		return 0
	}
	return m.Cells[ri][ci]
}

// MentionGroup holds the mentions of one vehicle.
type MentionGroup struct {
	Vehicle  string
	Mentions []FeatureMention
}

// DateRange spans the known start dates of a record set. Known is false when
// no record had a parseable date.
type DateRange struct {
	Start time.Time
	End   time.Time
	Known bool
}

// Summary is the headline view of a filtered dataset.
type Summary struct {
	TotalCount        int
	FilteredCount     int
	DateRange         DateRange
	UniqueVehicles    int
	UniqueAdvertisers int
	MalformedRows     int
}

// MarketStats summarizes the ads of one market.
type MarketStats struct {
	Market            string
	TotalAds          int
	UniqueVehicles    int
	UniqueAdvertisers int
	DateRange         DateRange
}

// VehicleStats summarizes the ads of one vehicle.
type VehicleStats struct {
	Vehicle         string
	TotalAds        int
	MarketBreakdown []Count
	Advertisers     []string
}

// Table is a tabular export handed to CSV download.
type Table struct {
	Columns []string
	Rows    [][]string
}
