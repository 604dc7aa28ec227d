package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Schema variant names accepted by the normalizer.
const (
	SchemaGoogle   = "google"
	SchemaFacebook = "facebook"
	SchemaMerged   = "merged"
)

// UnknownPlatform tags a merged-schema row whose platform cell is empty.
const UnknownPlatform = "unknown"

var (
	// ErrMissingRequiredSchema means the input carries none of the columns
	// that can supply the platform tag.
	ErrMissingRequiredSchema = errors.New("missing required schema field")
	// ErrUnknownSchema means the schema hint names no known variant.
	ErrUnknownSchema = errors.New("unknown schema variant")
)

// SchemaError reports a load-fatal schema problem.
type SchemaError struct {
	Schema     string
	Field      string
	Candidates []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %q: no column for required field %q (looked for %s)",
		e.Schema, e.Field, strings.Join(e.Candidates, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrMissingRequiredSchema }

// fieldPrecedence lists, per canonical field, the source columns consulted in
// order. The first non-empty value wins.
type fieldPrecedence struct {
	// fixedPlatform is set for single-platform exports; otherwise the
	// platform comes from the platform columns.
	fixedPlatform string
	platform      []string
	id            []string
	market        []string
	vehicle       []string
	advertiser    []string
	startDate     []string
	endDate       []string
	analysis      []string
}

var schemas = map[string]fieldPrecedence{
	SchemaGoogle: {
		fixedPlatform: "google",
		id:            []string{"creativeId", "creative_id", "ad_id", "id"},
		market:        []string{"country", "region_name", "region_info", "region_code"},
		vehicle:       []string{"matched_cars", "vehicle_model", "primary_vehicle"},
		advertiser:    []string{"advertiserName", "advertiser_name"},
		startDate:     []string{"firstShown", "start_date"},
		endDate:       []string{"lastShown", "end_date"},
		analysis:      []string{"openai_analysis"},
	},
	SchemaFacebook: {
		fixedPlatform: "facebook",
		id:            []string{"ad_archive_id", "ad_id", "id"},
		market:        []string{"country", "targeted_countries_list", "targeted_countries", "region_info"},
		vehicle:       []string{"matched_cars", "matched_car_models", "vehicle_model"},
		advertiser:    []string{"advertiser_name", "page_name"},
		startDate:     []string{"start_date", "ad_delivery_start_time"},
		endDate:       []string{"end_date", "ad_delivery_stop_time"},
		analysis:      []string{"openai_analysis", "openai_summary"},
	},
	SchemaMerged: {
		platform:   []string{"source_platform", "platform"},
		id:         []string{"ad_archive_id", "creative_id", "ad_id", "id"},
		market:     []string{"country", "targeted_countries_list", "region_info", "region_code"},
		vehicle:    []string{"matched_cars", "matched_car_models", "vehicle_model", "primary_vehicle"},
		advertiser: []string{"advertiser_name", "page_name"},
		startDate:  []string{"start_date"},
		endDate:    []string{"end_date"},
		analysis:   []string{"openai_analysis", "openai_summary"},
	},
}

// KnownSchemas returns the accepted schema variant names, sorted.
func KnownSchemas() []string {
	out := make([]string, 0, len(schemas))
	for name := range schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func lookupSchema(name string) (fieldPrecedence, error) {
	p, ok := schemas[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fieldPrecedence{}, fmt.Errorf("normalize: %w: %q (known: %s)",
			ErrUnknownSchema, name, strings.Join(KnownSchemas(), ", "))
	}
	return p, nil
}
