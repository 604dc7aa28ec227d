package services

import (
	"ev-ad-insights/config"
	"ev-ad-insights/models"
)

// Filters are the active query constraints. An empty list means no
// constraint on that dimension.
type Filters struct {
	Markets   []string
	Vehicles  []string
	Platforms []string
}

// TargetFilters returns the catalog's configured target markets and vehicles.
func TargetFilters(catalog *config.Catalog) Filters {
	return Filters{
		Markets:  catalog.MarketNames(),
		Vehicles: catalog.VehicleNames(),
	}
}

// Apply runs all constraints in f over records.
func (f Filters) Apply(records []*models.CanonicalRecord) []*models.CanonicalRecord {
	out := Filter(records, f.Markets, f.Vehicles)
	return FilterPlatforms(out, f.Platforms)
}

// Filter keeps records whose market is in markets and whose vehicle is in
// vehicles. Matching is case-insensitive and exact. The input is not modified
// and order is preserved, so applying the same filter twice changes nothing.
func Filter(records []*models.CanonicalRecord, markets, vehicles []string) []*models.CanonicalRecord {
	marketSet := newMemberSet(markets)
	vehicleSet := newMemberSet(vehicles)

	out := make([]*models.CanonicalRecord, 0, len(records))
	for _, r := range records {
		if marketSet.contains(r.Market) && vehicleSet.contains(r.Vehicle) {
			out = append(out, r)
		}
	}
	return out
}

// FilterPlatforms keeps records whose platform tag is in platforms.
func FilterPlatforms(records []*models.CanonicalRecord, platforms []string) []*models.CanonicalRecord {
	set := newMemberSet(platforms)
	if set.all() {
		return records
	}

	out := make([]*models.CanonicalRecord, 0, len(records))
	for _, r := range records {
		if set.contains(r.Platform) {
			out = append(out, r)
		}
	}
	return out
}

// memberSet is a case-folded set. A nil set admits everything.
type memberSet map[string]struct{}

func newMemberSet(values []string) memberSet {
	var s memberSet
	for _, v := range values {
		k := foldKey(v)
		if k == "" {
			continue
		}
		if s == nil {
			s = make(memberSet, len(values))
		}
		s[k] = struct{}{}
	}
	return s
}

func (s memberSet) all() bool { return s == nil }

func (s memberSet) contains(v string) bool {
	if s == nil {
		return true
	}
	_, ok := s[foldKey(v)]
	return ok
}
