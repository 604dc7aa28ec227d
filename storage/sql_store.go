package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"ev-ad-insights/models"
	"ev-ad-insights/utils"
)

// dialect captures what differs between the supported SQL backends.
type dialect struct {
	name        string
	driver      string
	placeholder func(n int) string
}

var (
	postgresDialect = dialect{
		name:        "postgres",
		driver:      "postgres",
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
	sqliteDialect = dialect{
		name:        "sqlite",
		driver:      "sqlite",
		placeholder: func(int) string { return "?" },
	}
)

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS ad_records (
		id            TEXT PRIMARY KEY,
		row_index     INTEGER NOT NULL,
		platform      VARCHAR(50) NOT NULL,
		market        TEXT NOT NULL DEFAULT '',
		vehicle       TEXT NOT NULL DEFAULT '',
		advertiser    TEXT NOT NULL DEFAULT '',
		start_date    TEXT,
		end_date      TEXT,
		analysis_text TEXT NOT NULL DEFAULT '',
		issues        TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS feature_mentions (
		seq       INTEGER NOT NULL,
		record_id TEXT NOT NULL,
		category  TEXT NOT NULL,
		section   TEXT NOT NULL,
		snippet   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ad_records_market   ON ad_records(market);
	CREATE INDEX IF NOT EXISTS idx_ad_records_vehicle  ON ad_records(vehicle);
	CREATE INDEX IF NOT EXISTS idx_ad_records_platform ON ad_records(platform);
	CREATE INDEX IF NOT EXISTS idx_feature_mentions_category ON feature_mentions(category);
`

// SQLStore persists a dataset snapshot (records plus extracted mentions) to
// PostgreSQL or SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

// NewPostgresStore connects to PostgreSQL, retrying the first ping, and runs
// schema migrations.
func NewPostgresStore(dsn string, retry *utils.RetryConfig) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do("postgres ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return newSQLStore(db, postgresDialect)
}

// NewSQLiteStore opens (or creates) the SQLite database at path. Use
// ":memory:" for a throwaway store.
func NewSQLiteStore(path string) (*SQLStore, error) {
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and each ":memory:"
	// connection would otherwise see its own database.
	db.SetMaxOpenConns(1)

	return newSQLStore(db, sqliteDialect)
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: migrate: %w", d.name, err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	for _, stmt := range strings.Split(schemaDDL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Clear deletes any previous snapshot.
func (s *SQLStore) Clear() error {
	for _, table := range []string{"feature_mentions", "ad_records"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("%s: clear %s: %w", s.dialect.name, table, err)
		}
	}
	return nil
}

// Write replaces the stored snapshot with records and mentions.
func (s *SQLStore) Write(records []*models.CanonicalRecord, mentions []models.FeatureMention) error {
	if err := s.Clear(); err != nil {
		return err
	}

	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		if err := s.insertRecords(records[i:end]); err != nil {
			return fmt.Errorf("%s: insert records: %w", s.dialect.name, err)
		}
	}
	for i := 0; i < len(mentions); i += batchSize {
		end := min(i+batchSize, len(mentions))
		if err := s.insertMentions(i, mentions[i:end]); err != nil {
			return fmt.Errorf("%s: insert mentions: %w", s.dialect.name, err)
		}
	}
	return nil
}

func (s *SQLStore) insertRecords(batch []*models.CanonicalRecord) error {
	const cols = 10
	args := make([]any, 0, len(batch)*cols)
	for _, r := range batch {
		args = append(args,
			r.ID, r.Row, r.Platform, r.Market, r.Vehicle, r.Advertiser,
			nullableDate(r.StartDate), nullableDate(r.EndDate),
			r.AnalysisText, strings.Join(r.Issues, "\n"))
	}

	query := fmt.Sprintf(`
		INSERT INTO ad_records (id, row_index, platform, market, vehicle, advertiser,
			start_date, end_date, analysis_text, issues)
		VALUES %s
		ON CONFLICT (id) DO NOTHING
	`, s.values(len(batch), cols))

	_, err := s.db.Exec(query, args...)
	return err
}

func (s *SQLStore) insertMentions(offset int, batch []models.FeatureMention) error {
	const cols = 5
	args := make([]any, 0, len(batch)*cols)
	for i, m := range batch {
		args = append(args, offset+i, m.RecordID, m.Category, m.Section, m.Snippet)
	}

	query := fmt.Sprintf(`
		INSERT INTO feature_mentions (seq, record_id, category, section, snippet)
		VALUES %s
	`, s.values(len(batch), cols))

	_, err := s.db.Exec(query, args...)
	return err
}

// values renders "(p1,p2,...),(...)" placeholders for rows x cols arguments.
func (s *SQLStore) values(rows, cols int) string {
	groups := make([]string, 0, rows)
	n := 1
	for r := 0; r < rows; r++ {
		ph := make([]string, cols)
		for c := range ph {
			ph[c] = s.dialect.placeholder(n)
			n++
		}
		groups = append(groups, "("+strings.Join(ph, ",")+")")
	}
	return strings.Join(groups, ",")
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// FetchAll retrieves the stored records in input order. Raw rows are not
// persisted, so Raw is nil on the returned records.
func (s *SQLStore) FetchAll() ([]*models.CanonicalRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, row_index, platform, market, vehicle, advertiser,
			start_date, end_date, analysis_text, issues
		FROM ad_records
		ORDER BY row_index
	`)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch all: %w", s.dialect.name, err)
	}
	defer rows.Close()

	var records []*models.CanonicalRecord
	for rows.Next() {
		r := &models.CanonicalRecord{}
		var start, end sql.NullString
		var issues string
		if err := rows.Scan(
			&r.ID, &r.Row, &r.Platform, &r.Market, &r.Vehicle, &r.Advertiser,
			&start, &end, &r.AnalysisText, &issues,
		); err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", s.dialect.name, err)
		}
		r.StartDate = parseStoredDate(start)
		r.EndDate = parseStoredDate(end)
		if issues != "" {
			r.Issues = strings.Split(issues, "\n")
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// FetchMentions retrieves the stored mentions of one category, or all
// mentions when category is empty.
func (s *SQLStore) FetchMentions(category string) ([]models.FeatureMention, error) {
	query := `SELECT m.record_id, m.category, m.section, m.snippet
		FROM feature_mentions m JOIN ad_records r ON r.id = m.record_id`
	var args []any
	if category != "" {
		query += " WHERE m.category = " + s.dialect.placeholder(1)
		args = append(args, category)
	}
	query += " ORDER BY m.seq"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch mentions: %w", s.dialect.name, err)
	}
	defer rows.Close()

	var out []models.FeatureMention
	for rows.Next() {
		var m models.FeatureMention
		if err := rows.Scan(&m.RecordID, &m.Category, &m.Section, &m.Snippet); err != nil {
			return nil, fmt.Errorf("%s: scan mention: %w", s.dialect.name, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const storedDateLayout = "2006-01-02T15:04:05Z07:00"

func nullableDate(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(storedDateLayout), Valid: true}
}

func parseStoredDate(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	t, err := time.Parse(storedDateLayout, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
