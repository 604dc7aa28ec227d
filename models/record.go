package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawRecord holds one unprocessed input row keyed by its source column name.
// Values are typically strings (CSV cells) but numbers and time.Time values
// are accepted from programmatic callers.
type RawRecord map[string]any

// nullMarkers are cell values that exporters (mostly pandas) write for
// missing data. They read as absent.
var nullMarkers = map[string]struct{}{
	"nan":  {},
	"nat":  {},
	"none": {},
	"null": {},
	"<na>": {},
}

// Value returns the trimmed textual form of column col and whether the
// column carried a non-empty value.
func (r RawRecord) Value(col string) (string, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return "", false
	}

	var s string
	switch t := v.(type) {
	case string:
		s = t
	case time.Time:
		if t.IsZero() {
			return "", false
		}
		s = t.Format(time.RFC3339)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(t)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if _, null := nullMarkers[strings.ToLower(s)]; null {
		return "", false
	}
	return s, true
}

// Time returns column col when it already holds a time.Time.
func (r RawRecord) Time(col string) (time.Time, bool) {
	t, ok := r[col].(time.Time)
	if !ok || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

// Has reports whether the column exists in the row at all, empty or not.
func (r RawRecord) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// UnknownVehicle is the vehicle name used when no source column resolves.
const UnknownVehicle = "Unknown"

// CanonicalRecord is one advertisement in the unified schema. Records are
// immutable once the normalizer returns them.
type CanonicalRecord struct {
	ID           string
	Row          int
	Market       string
	Vehicle      string
	Advertiser   string
	Platform     string
	StartDate    time.Time
	EndDate      time.Time
	AnalysisText string
	Raw          RawRecord

	// Issues annotates a malformed row (bad date, duplicate id, ...).
	Issues []string
}

// HasStartDate reports whether the start date parsed.
func (r *CanonicalRecord) HasStartDate() bool { return !r.StartDate.IsZero() }

// HasEndDate reports whether the end date parsed.
func (r *CanonicalRecord) HasEndDate() bool { return !r.EndDate.IsZero() }

// Malformed reports whether the normalizer annotated the row.
func (r *CanonicalRecord) Malformed() bool { return len(r.Issues) > 0 }

// FeatureMention is one categorized snippet taken from a record's analysis text.
type FeatureMention struct {
	RecordID string
	Category string
	Section  string
	Snippet  string
}

// UnsectionedLabel is the section of text found before any section header.
const UnsectionedLabel = "Unsectioned"

// OtherCategory receives snippets no taxonomy category claims.
const OtherCategory = "Other"
