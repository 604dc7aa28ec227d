package services

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"ev-ad-insights/cache"
	"ev-ad-insights/config"
	"ev-ad-insights/models"
	"ev-ad-insights/utils"
)

// Export kinds accepted by ExportTable.
const (
	ExportRecords         = "records"
	ExportMarketSummary   = "market_summary"
	ExportFeatureAnalysis = "feature_analysis"
	ExportMarketVehicle   = "market_vehicle"
	ExportMentions        = "mentions"
	ExportTimeline        = "timeline"
	ExportTones           = "tones"
	ExportThemes          = "themes"
)

// ErrUnknownExport is returned for an export kind ExportTable does not know.
var ErrUnknownExport = errors.New("unknown export kind")

// ExportKinds lists the accepted export kinds.
func ExportKinds() []string {
	return []string{
		ExportRecords, ExportMarketSummary, ExportFeatureAnalysis,
		ExportMarketVehicle, ExportMentions, ExportTimeline,
		ExportTones, ExportThemes,
	}
}

// RowSource supplies the raw rows of one input file or directory.
type RowSource interface {
	Name() string
	Schema() string
	Rows() ([]models.RawRecord, error)
}

// Dataset is the handle returned by Load and passed to every query. Its
// records are immutable.
type Dataset struct {
	ID        string
	Name      string
	Schema    string
	Version   string
	LoadedAt  time.Time
	Records   []*models.CanonicalRecord
	Malformed int

	mentions *MentionIndex
}

// Len returns the number of records in the dataset.
func (d *Dataset) Len() int { return len(d.Records) }

// DetailQuery selects the mentions returned by FeatureDetail.
type DetailQuery struct {
	Filters  Filters
	Category string
	// Vehicle "" or "All" keeps every vehicle.
	Vehicle string
	// Limit caps mentions per vehicle; 0 means no cap.
	Limit int
}

// Engine answers the read-only queries of the presentation layer.
type Engine struct {
	mu         sync.RWMutex
	normalizer *Normalizer
	extractor  *Extractor
	style      styleConfig

	cache  *cache.QueryCache
	logger *utils.Logger
}

// styleConfig holds the catalog tables behind the tone, theme and detail
// views.
type styleConfig struct {
	tones    *KeywordTable
	themes   *KeywordTable
	excluded sectionExclusions
}

func newStyleConfig(catalog *config.Catalog) styleConfig {
	return styleConfig{
		tones:    NewKeywordTable(catalog.Tones),
		themes:   NewKeywordTable(catalog.Themes),
		excluded: newSectionExclusions(catalog.DetailExcludedSections),
	}
}

// NewEngine creates an Engine over catalog. Query results are memoized in qc.
func NewEngine(catalog *config.Catalog, qc *cache.QueryCache, logger *utils.Logger) *Engine {
	return &Engine{
		normalizer: NewNormalizer(catalog, logger),
		extractor:  NewExtractor(NewTaxonomy(catalog), logger),
		style:      newStyleConfig(catalog),
		cache:      qc,
		logger:     logger,
	}
}

// SetCatalog swaps in a new catalog. Name aliases apply to later loads;
// mentions are re-extracted lazily when the taxonomy version changed.
func (e *Engine) SetCatalog(catalog *config.Catalog) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.normalizer = NewNormalizer(catalog, e.logger)
	e.extractor = NewExtractor(NewTaxonomy(catalog), e.logger)
	e.style = newStyleConfig(catalog)
	e.logger.Info("[engine] Catalog updated (taxonomy %s)", catalog.TaxonomyVersion)
}

// Taxonomy returns the taxonomy currently used for extraction.
func (e *Engine) Taxonomy() *Taxonomy {
	return e.currentExtractor().Taxonomy()
}

func (e *Engine) currentExtractor() *Extractor {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.extractor
}

func (e *Engine) currentStyle() styleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.style
}

// Load reads src and normalizes it into a new Dataset. The query cache is
// reset because earlier results belong to the previous dataset.
func (e *Engine) Load(src RowSource) (*Dataset, error) {
	rows, err := src.Rows()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", src.Name(), err)
	}
	return e.LoadRows(src.Name(), src.Schema(), rows)
}

// LoadRows normalizes rows already in memory.
func (e *Engine) LoadRows(name, schema string, rows []models.RawRecord) (*Dataset, error) {
	e.mu.RLock()
	normalizer := e.normalizer
	e.mu.RUnlock()

	res, err := normalizer.Normalize(rows, schema)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	ds := &Dataset{
		ID:        uuid.NewString(),
		Name:      name,
		Schema:    strings.ToLower(schema),
		Version:   contentVersion(rows),
		LoadedAt:  time.Now(),
		Records:   res.Records,
		Malformed: res.Malformed,
		mentions:  NewMentionIndex(),
	}
	e.cache.Reset()

	e.logger.Info("[engine] Loaded %s: %d records, %d annotated (version %s)",
		name, ds.Len(), ds.Malformed, ds.Version)
	return ds, nil
}

// Filtered returns the records of ds that pass f.
func (e *Engine) Filtered(ds *Dataset, f Filters) ([]*models.CanonicalRecord, error) {
	fp := e.fingerprint(ds, "filter", f).Build()
	return cache.Get(e.cache, fp, func() ([]*models.CanonicalRecord, error) {
		return f.Apply(ds.Records), nil
	})
}

// Mentions returns the feature mentions of the records of ds that pass f.
func (e *Engine) Mentions(ds *Dataset, f Filters) ([]models.FeatureMention, error) {
	ext := e.currentExtractor()
	fp := e.fingerprint(ds, "mentions", f).Build()
	return cache.Get(e.cache, fp, func() ([]models.FeatureMention, error) {
		records, err := e.Filtered(ds, f)
		if err != nil {
			return nil, err
		}
		return ds.mentions.Collect(records, ext), nil
	})
}

// Summary returns headline counts for ds under f.
func (e *Engine) Summary(ds *Dataset, f Filters) (*models.Summary, error) {
	fp := e.fingerprint(ds, "summary", f).Build()
	return cache.Get(e.cache, fp, func() (*models.Summary, error) {
		records, err := e.Filtered(ds, f)
		if err != nil {
			return nil, err
		}
		return Summarize(ds.Len(), records, countMalformed(records)), nil
	})
}

// FeatureBreakdown counts mentions per feature category.
func (e *Engine) FeatureBreakdown(ds *Dataset, f Filters) ([]models.Count, error) {
	fp := e.fingerprint(ds, "breakdown", f).Build()
	return cache.Get(e.cache, fp, func() ([]models.Count, error) {
		mentions, err := e.Mentions(ds, f)
		if err != nil {
			return nil, err
		}
		return CountBy(mentions, ByCategory), nil
	})
}

// FeatureDetail returns mentions grouped by vehicle. Mentions under the
// catalog's excluded sections (dealer or advertiser blurbs) are left out.
func (e *Engine) FeatureDetail(ds *Dataset, q DetailQuery) ([]models.MentionGroup, error) {
	excluded := e.currentStyle().excluded
	fp := e.fingerprint(ds, "detail", q.Filters).
		With("category", q.Category).
		With("vehicle", detailVehicleKey(q.Vehicle)).
		WithInt("limit", q.Limit).
		WithSet("excluded", excluded).
		Build()
	return cache.Get(e.cache, fp, func() ([]models.MentionGroup, error) {
		records, err := e.Filtered(ds, q.Filters)
		if err != nil {
			return nil, err
		}
		mentions, err := e.Mentions(ds, q.Filters)
		if err != nil {
			return nil, err
		}
		return TopMentions(records, excluded.filter(mentions), q.Category, q.Vehicle, q.Limit), nil
	})
}

// ToneBreakdown counts, per vehicle, the ads whose analysis carries each
// catalog tone.
func (e *Engine) ToneBreakdown(ds *Dataset, f Filters) (*models.Matrix, error) {
	return e.styleBreakdown(ds, f, "tones", e.currentStyle().tones)
}

// ThemeBreakdown counts, per vehicle, the ads whose analysis carries each
// catalog image theme.
func (e *Engine) ThemeBreakdown(ds *Dataset, f Filters) (*models.Matrix, error) {
	return e.styleBreakdown(ds, f, "themes", e.currentStyle().themes)
}

func (e *Engine) styleBreakdown(ds *Dataset, f Filters, op string, table *KeywordTable) (*models.Matrix, error) {
	fp := e.fingerprint(ds, op, f).With("table", table.Signature()).Build()
	return cache.Get(e.cache, fp, func() (*models.Matrix, error) {
		records, err := e.Filtered(ds, f)
		if err != nil {
			return nil, err
		}
		return StyleMatrix(records, table), nil
	})
}

// MarketSummary returns per-market statistics under f.
func (e *Engine) MarketSummary(ds *Dataset, f Filters) ([]models.MarketStats, error) {
	fp := e.fingerprint(ds, "markets", f).Build()
	return cache.Get(e.cache, fp, func() ([]models.MarketStats, error) {
		records, err := e.Filtered(ds, f)
		if err != nil {
			return nil, err
		}
		return MarketSummary(records), nil
	})
}

// VehicleAnalysis returns per-vehicle statistics under f.
func (e *Engine) VehicleAnalysis(ds *Dataset, f Filters) ([]models.VehicleStats, error) {
	fp := e.fingerprint(ds, "vehicles", f).Build()
	return cache.Get(e.cache, fp, func() ([]models.VehicleStats, error) {
		records, err := e.Filtered(ds, f)
		if err != nil {
			return nil, err
		}
		return VehicleAnalysis(records), nil
	})
}

// Timeline counts ads per start month, oldest first. Records with an unknown
// start date are left out.
func (e *Engine) Timeline(ds *Dataset, f Filters) ([]models.Count, error) {
	fp := e.fingerprint(ds, "timeline", f).Build()
	return cache.Get(e.cache, fp, func() ([]models.Count, error) {
		records, err := e.Filtered(ds, f)
		if err != nil {
			return nil, err
		}
		months := CountBy(records, ByMonth)
		sort.Slice(months, func(i, j int) bool { return months[i].Key < months[j].Key })
		return months, nil
	})
}

// PlatformShare returns each platform's share of the filtered ads.
func (e *Engine) PlatformShare(ds *Dataset, f Filters) ([]models.Share, error) {
	fp := e.fingerprint(ds, "platforms", f).Build()
	return cache.Get(e.cache, fp, func() ([]models.Share, error) {
		records, err := e.Filtered(ds, f)
		if err != nil {
			return nil, err
		}
		return ShareOf(records, ByPlatform), nil
	})
}

// ExportTable renders one of the ExportKinds as a table.
func (e *Engine) ExportTable(ds *Dataset, kind string, f Filters) (*models.Table, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	known := false
	for _, k := range ExportKinds() {
		if k == kind {
			known = true
			break
		}
	}
	if !known {
		return nil, fmt.Errorf("export %q: %w (known: %s)", kind, ErrUnknownExport, strings.Join(ExportKinds(), ", "))
	}

	fp := e.fingerprint(ds, "export", f).With("kind", kind).Build()
	return cache.Get(e.cache, fp, func() (*models.Table, error) {
		return e.buildTable(ds, kind, f)
	})
}

func (e *Engine) buildTable(ds *Dataset, kind string, f Filters) (*models.Table, error) {
	records, err := e.Filtered(ds, f)
	if err != nil {
		return nil, err
	}

	switch kind {
	case ExportRecords:
		t := &models.Table{Columns: []string{
			"id", "platform", "market", "vehicle", "advertiser", "start_date", "end_date", "issues",
		}}
		for _, r := range records {
			t.Rows = append(t.Rows, []string{
				r.ID, r.Platform, r.Market, r.Vehicle, r.Advertiser,
				formatDate(r.StartDate), formatDate(r.EndDate), strings.Join(r.Issues, "; "),
			})
		}
		return t, nil

	case ExportMarketSummary:
		t := &models.Table{Columns: []string{
			"Market", "Total_Ads", "Unique_Vehicles", "Unique_Advertisers", "Date_Start", "Date_End",
		}}
		for _, m := range MarketSummary(records) {
			t.Rows = append(t.Rows, []string{
				m.Market, itoa(m.TotalAds), itoa(m.UniqueVehicles), itoa(m.UniqueAdvertisers),
				formatDate(m.DateRange.Start), formatDate(m.DateRange.End),
			})
		}
		return t, nil

	case ExportFeatureAnalysis:
		mentions, err := e.Mentions(ds, f)
		if err != nil {
			return nil, err
		}
		vehicleOf := make(map[string]string, len(records))
		for _, r := range records {
			vehicleOf[r.ID] = r.Vehicle
		}
		m := CrossTab(mentions, func(fm models.FeatureMention) (string, bool) {
			v, ok := vehicleOf[fm.RecordID]
			return v, ok
		}, ByCategory)
		return matrixTable(m, []string{"Vehicle", "Feature_Category", "Mention_Count"}), nil

	case ExportMarketVehicle:
		m := CrossTab(records, ByMarket, ByVehicle)
		return matrixTable(m, []string{"Market", "Vehicle", "Ad_Count"}), nil

	case ExportMentions:
		mentions, err := e.Mentions(ds, f)
		if err != nil {
			return nil, err
		}
		byID := make(map[string]*models.CanonicalRecord, len(records))
		for _, r := range records {
			byID[r.ID] = r
		}
		t := &models.Table{Columns: []string{"record_id", "vehicle", "market", "category", "section", "snippet"}}
		for _, fm := range mentions {
			r := byID[fm.RecordID]
			t.Rows = append(t.Rows, []string{fm.RecordID, r.Vehicle, r.Market, fm.Category, fm.Section, fm.Snippet})
		}
		return t, nil

	case ExportTones, ExportThemes:
		breakdown, label := e.ToneBreakdown, "Tone"
		if kind == ExportThemes {
			breakdown, label = e.ThemeBreakdown, "Theme"
		}
		m, err := breakdown(ds, f)
		if err != nil {
			return nil, err
		}
		return matrixTable(m, []string{"Vehicle", label, "Ad_Count"}), nil

	case ExportTimeline:
		months, err := e.Timeline(ds, f)
		if err != nil {
			return nil, err
		}
		t := &models.Table{Columns: []string{"Month", "Ad_Count"}}
		for _, c := range months {
			t.Rows = append(t.Rows, []string{c.Key, itoa(c.Value)})
		}
		return t, nil
	}
	return nil, fmt.Errorf("export %q: %w", kind, ErrUnknownExport)
}

// matrixTable flattens the non-zero cells of m into (row, col, count) rows.
func matrixTable(m *models.Matrix, columns []string) *models.Table {
	t := &models.Table{Columns: columns}
	for i, row := range m.Rows {
		for j, col := range m.Cols {
			if n := m.Cells[i][j]; n > 0 {
				t.Rows = append(t.Rows, []string{row, col, itoa(n)})
			}
		}
	}
	return t
}

// fingerprint keys a query on ds. Loads of identical content still get
// distinct keys, since their records depend on the catalog at load time.
func (e *Engine) fingerprint(ds *Dataset, op string, f Filters) *cache.FingerprintBuilder {
	return cache.NewFingerprint(ds.Version).
		With("dataset_id", ds.ID).
		With("schema", ds.Schema).
		With("taxonomy", e.Taxonomy().Version).
		With("op", op).
		WithSet("markets", f.Markets).
		WithSet("vehicles", f.Vehicles).
		WithSet("platforms", f.Platforms)
}

// contentVersion hashes every row, columns in sorted order, so the same file
// content always yields the same version.
func contentVersion(rows []models.RawRecord) string {
	d := xxhash.New()
	cols := make([]string, 0, 32)
	for _, row := range rows {
		cols = cols[:0]
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			v, _ := row.Value(col)
			_, _ = fmt.Fprintf(d, "%d:%s=%d:%s;", len(col), col, len(v), v)
		}
		_, _ = d.WriteString("\n")
	}
	return fmt.Sprintf("%d-%016x", len(rows), d.Sum64())
}

func countMalformed(records []*models.CanonicalRecord) int {
	n := 0
	for _, r := range records {
		if r.Malformed() {
			n++
		}
	}
	return n
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func itoa(n int) string { return strconv.Itoa(n) }
