package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ev-ad-insights/config"
	"ev-ad-insights/models"
	"ev-ad-insights/utils"
)

// dateLayouts are tried in order by parseDate.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05.999999",
	"2006-01-02T15:04:05-0700",
	"2006/01/02",
	"02/01/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// minUnixDate keeps bare years like "2024" from reading as epoch seconds.
const minUnixDate = 1_000_000_000

// NormalizeResult is the output of one normalization pass.
type NormalizeResult struct {
	Records []*models.CanonicalRecord
	// Malformed counts rows that were kept but annotated.
	Malformed int
}

// Normalizer maps raw rows from a known source schema onto CanonicalRecords.
type Normalizer struct {
	logger   *utils.Logger
	markets  *nameResolver
	vehicles *nameResolver
}

// NewNormalizer creates a Normalizer resolving market and vehicle name
// variants through the catalog.
func NewNormalizer(catalog *config.Catalog, logger *utils.Logger) *Normalizer {
	return &Normalizer{
		logger:   logger,
		markets:  newNameResolver(catalog.Markets),
		vehicles: newNameResolver(catalog.Vehicles),
	}
}

// Normalize converts rows of the named schema variant. A bad row is annotated
// and kept; only a schema that cannot supply the platform fails the call.
func (n *Normalizer) Normalize(rows []models.RawRecord, schema string) (*NormalizeResult, error) {
	p, err := lookupSchema(schema)
	if err != nil {
		return nil, err
	}

	if p.fixedPlatform == "" && len(rows) > 0 && !anyColumnPresent(rows, p.platform) {
		return nil, fmt.Errorf("normalize: %w", &SchemaError{
			Schema:     schema,
			Field:      "platform",
			Candidates: p.platform,
		})
	}

	result := &NormalizeResult{Records: make([]*models.CanonicalRecord, 0, len(rows))}
	ids := make(map[string]int, len(rows))

	for i, raw := range rows {
		rec := n.normalizeRow(i, raw, p)

		// Ids must be unique within a snapshot; later duplicates get a suffix.
		if seen := ids[rec.ID]; seen > 0 {
			original := rec.ID
			for {
				seen++
				rec.ID = original + "~" + strconv.Itoa(seen)
				if ids[rec.ID] == 0 {
					break
				}
			}
			ids[original] = seen
			rec.Issues = append(rec.Issues, fmt.Sprintf("duplicate id %q renamed to %q", original, rec.ID))
		}
		ids[rec.ID] = 1

		if rec.Malformed() {
			result.Malformed++
			n.logger.Debug("[normalizer] Row %d annotated: %s", i, strings.Join(rec.Issues, "; "))
		}
		result.Records = append(result.Records, rec)
	}

	n.logger.Info("[normalizer] Normalized %d %s rows (%d annotated)",
		len(result.Records), schema, result.Malformed)
	return result, nil
}

func (n *Normalizer) normalizeRow(i int, raw models.RawRecord, p fieldPrecedence) *models.CanonicalRecord {
	rec := &models.CanonicalRecord{Row: i, Raw: raw}

	rec.Platform = p.fixedPlatform
	if rec.Platform == "" {
		if v, ok := firstNonEmpty(raw, p.platform); ok {
			rec.Platform = strings.ToLower(v)
		} else {
			rec.Platform = UnknownPlatform
			rec.Issues = append(rec.Issues, "platform is empty")
		}
	}

	if v, ok := firstNonEmpty(raw, p.id); ok {
		rec.ID = v
	} else {
		rec.ID = fmt.Sprintf("%s-row-%d", rec.Platform, i+1)
	}

	if v, ok := firstNonEmpty(raw, p.market); ok {
		rec.Market = n.markets.pick(v)
	}

	rec.Vehicle = models.UnknownVehicle
	if v, ok := firstNonEmpty(raw, p.vehicle); ok {
		if picked := n.vehicles.pick(v); picked != "" {
			rec.Vehicle = picked
		}
	}

	if v, ok := firstNonEmpty(raw, p.advertiser); ok {
		rec.Advertiser = normaliseText(v)
	}
	if v, ok := firstNonEmpty(raw, p.analysis); ok {
		rec.AnalysisText = v
	}

	rec.StartDate = n.resolveDate(raw, p.startDate, "start_date", rec)
	rec.EndDate = n.resolveDate(raw, p.endDate, "end_date", rec)

	return rec
}

// resolveDate returns the zero time for an absent or unparseable date. Only
// the unparseable case annotates the record.
func (n *Normalizer) resolveDate(raw models.RawRecord, cols []string, field string, rec *models.CanonicalRecord) time.Time {
	for _, col := range cols {
		if t, ok := raw.Time(col); ok {
			return t
		}
	}

	v, ok := firstNonEmpty(raw, cols)
	if !ok {
		return time.Time{}
	}

	t, err := parseDate(v)
	if err != nil {
		rec.Issues = append(rec.Issues, fmt.Sprintf("%s: %v", field, err))
		return time.Time{}
	}
	return t
}

// parseDate accepts the layouts the exporters are known to write, plus
// unix seconds.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs >= minUnixDate {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func firstNonEmpty(raw models.RawRecord, cols []string) (string, bool) {
	for _, col := range cols {
		if v, ok := raw.Value(col); ok {
			return v, true
		}
	}
	return "", false
}

func anyColumnPresent(rows []models.RawRecord, cols []string) bool {
	for _, row := range rows {
		for _, col := range cols {
			if row.Has(col) {
				return true
			}
		}
	}
	return false
}
