package services

import (
	"sort"

	"ev-ad-insights/models"
)

// KeyFunc extracts a grouping key. ok is false when the item has no
// resolvable key; such items are left out of counts and denominators.
type KeyFunc[T any] func(item T) (key string, ok bool)

// CountBy counts items per key, sorted by count descending. Equal counts keep
// the order in which their keys were first seen.
func CountBy[T any](items []T, key KeyFunc[T]) []models.Count {
	index := make(map[string]int)
	var counts []models.Count

	for _, item := range items {
		k, ok := key(item)
		if !ok {
			continue
		}
		i, seen := index[k]
		if !seen {
			i = len(counts)
			index[k] = i
			counts = append(counts, models.Count{Key: k})
		}
		counts[i].Value++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Value > counts[j].Value
	})
	if counts == nil {
		return []models.Count{}
	}
	return counts
}

// CrossTab counts items per (row key, column key). Rows and columns appear in
// first-seen order and absent combinations are zero. Items missing either key
// are skipped.
func CrossTab[T any](items []T, rowKey, colKey KeyFunc[T]) *models.Matrix {
	m := &models.Matrix{Rows: []string{}, Cols: []string{}, Cells: [][]int{}}
	rowIndex := make(map[string]int)
	colIndex := make(map[string]int)

	type pair struct{ r, c int }
	var pairs []pair

	for _, item := range items {
		rk, ok := rowKey(item)
		if !ok {
			continue
		}
		ck, ok := colKey(item)
		if !ok {
			continue
		}
		r, seen := rowIndex[rk]
		if !seen {
			r = len(m.Rows)
			rowIndex[rk] = r
			m.Rows = append(m.Rows, rk)
		}
		c, seen := colIndex[ck]
		if !seen {
			c = len(m.Cols)
			colIndex[ck] = c
			m.Cols = append(m.Cols, ck)
		}
		pairs = append(pairs, pair{r, c})
	}

	m.Cells = make([][]int, len(m.Rows))
	for i := range m.Cells {
		m.Cells[i] = make([]int, len(m.Cols))
	}
	for _, p := range pairs {
		m.Cells[p.r][p.c]++
	}
	return m
}

// ShareOf returns each key's percentage of the items whose key resolved.
// Order follows CountBy.
func ShareOf[T any](items []T, key KeyFunc[T]) []models.Share {
	counts := CountBy(items, key)

	total := 0
	for _, c := range counts {
		total += c.Value
	}

	shares := make([]models.Share, 0, len(counts))
	for _, c := range counts {
		shares = append(shares, models.Share{
			Key:     c.Key,
			Count:   c.Value,
			Percent: float64(c.Value) * 100 / float64(total),
		})
	}
	return shares
}

// TopMentions groups the mentions of category by vehicle. vehicle "" or "All"
// keeps every vehicle. Groups are sorted by vehicle name, mentions keep their
// input order, and limit > 0 caps each group.
func TopMentions(records []*models.CanonicalRecord, mentions []models.FeatureMention, category, vehicle string, limit int) []models.MentionGroup {
	vehicleOf := make(map[string]string, len(records))
	for _, r := range records {
		vehicleOf[r.ID] = r.Vehicle
	}
	vehicleKey := detailVehicleKey(vehicle)
	allVehicles := vehicleKey == ""

	index := make(map[string]int)
	groups := []models.MentionGroup{}

	for _, m := range mentions {
		if category != "" && m.Category != category {
			continue
		}
		v, ok := vehicleOf[m.RecordID]
		if !ok {
			continue
		}
		if !allVehicles && foldKey(v) != vehicleKey {
			continue
		}

		i, seen := index[v]
		if !seen {
			i = len(groups)
			index[v] = i
			groups = append(groups, models.MentionGroup{Vehicle: v})
		}
		if limit > 0 && len(groups[i].Mentions) >= limit {
			continue
		}
		groups[i].Mentions = append(groups[i].Mentions, m)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Vehicle < groups[j].Vehicle
	})
	return groups
}

// detailVehicleKey folds a detail vehicle selection. "" means every vehicle.
func detailVehicleKey(vehicle string) string {
	if vehicle == "All" {
		return ""
	}
	return foldKey(vehicle)
}

// ByMarket keys a record by market.
func ByMarket(r *models.CanonicalRecord) (string, bool) { return r.Market, r.Market != "" }

// ByVehicle keys a record by vehicle. "Unknown" does not resolve.
func ByVehicle(r *models.CanonicalRecord) (string, bool) {
	return r.Vehicle, r.Vehicle != "" && r.Vehicle != models.UnknownVehicle
}

// ByPlatform keys a record by platform tag.
func ByPlatform(r *models.CanonicalRecord) (string, bool) {
	return r.Platform, r.Platform != "" && r.Platform != UnknownPlatform
}

// ByAdvertiser keys a record by advertiser.
func ByAdvertiser(r *models.CanonicalRecord) (string, bool) { return r.Advertiser, r.Advertiser != "" }

// ByMonth keys a record by the month of its start date, e.g. "2025-03".
// Records with an unknown start date do not resolve.
func ByMonth(r *models.CanonicalRecord) (string, bool) {
	if !r.HasStartDate() {
		return "", false
	}
	return r.StartDate.Format("2006-01"), true
}

// ByCategory keys a mention by feature category.
func ByCategory(m models.FeatureMention) (string, bool) { return m.Category, m.Category != "" }

// BySection keys a mention by the section it was found under.
func BySection(m models.FeatureMention) (string, bool) { return m.Section, m.Section != "" }
