package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ev-ad-insights/models"
	"ev-ad-insights/utils"
)

// chunkMetadataFile lists chunk files in load order when a dataset was split
// into several CSVs.
const chunkMetadataFile = "chunks_metadata.json"

type chunkMetadata struct {
	ChunkFiles []string `json:"chunk_files"`
}

// CSVSource reads raw rows from a CSV file or from a directory of CSV chunks.
// Chunks are read concurrently and concatenated in order.
type CSVSource struct {
	path           string
	schema         string
	maxConcurrency int
	logger         *utils.Logger
}

// NewCSVSource creates a source for path holding rows of the given schema.
func NewCSVSource(path, schema string, maxConcurrency int, logger *utils.Logger) *CSVSource {
	return &CSVSource{path: path, schema: schema, maxConcurrency: maxConcurrency, logger: logger}
}

// Name returns the source path.
func (s *CSVSource) Name() string { return s.path }

// Schema returns the schema variant of the rows.
func (s *CSVSource) Schema() string { return s.schema }

// Rows reads every row.
func (s *CSVSource) Rows() ([]models.RawRecord, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("csv: stat %q: %w", s.path, err)
	}
	if !info.IsDir() {
		return readCSVFile(s.path)
	}

	files, err := s.chunkFiles()
	if err != nil {
		return nil, err
	}

	chunks := make([][]models.RawRecord, len(files))
	pool := utils.NewWorkerPool(s.maxConcurrency)
	for i, f := range files {
		i, f := i, f
		pool.Submit(func() error {
			rows, err := readCSVFile(f)
			if err != nil {
				return err
			}
			chunks[i] = rows
			s.logger.Debug("[csv] Loaded chunk %s: %d rows", filepath.Base(f), len(rows))
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return nil, err
	}

	var all []models.RawRecord
	for _, rows := range chunks {
		all = append(all, rows...)
	}
	s.logger.Info("[csv] Loaded %d rows from %d chunks in %s", len(all), len(files), s.path)
	return all, nil
}

// chunkFiles returns the chunk list from the metadata file when present and
// readable, otherwise every *.csv in the directory sorted by name.
func (s *CSVSource) chunkFiles() ([]string, error) {
	if data, err := os.ReadFile(filepath.Join(s.path, chunkMetadataFile)); err == nil {
		var meta chunkMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			s.logger.Warn("[csv] Ignoring unreadable %s: %v", chunkMetadataFile, err)
		} else if len(meta.ChunkFiles) > 0 {
			files := make([]string, 0, len(meta.ChunkFiles))
			for _, name := range meta.ChunkFiles {
				p := filepath.Join(s.path, name)
				if _, err := os.Stat(p); err != nil {
					s.logger.Warn("[csv] Chunk %s listed in metadata is missing", name)
					continue
				}
				files = append(files, p)
			}
			return files, nil
		}
	}

	files, err := filepath.Glob(filepath.Join(s.path, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("csv: list %q: %w", s.path, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("csv: no CSV files found in %q", s.path)
	}
	sort.Strings(files)
	return files, nil
}

func readCSVFile(path string) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("csv: read %q: %w", path, err)
	}
	return rows, nil
}

// ReadCSV parses CSV with a header row into raw records. Short rows leave the
// trailing columns empty; extra cells are ignored.
func ReadCSV(r io.Reader) ([]models.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []models.RawRecord
	for {
		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows)+1, err)
		}

		row := make(models.RawRecord, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(cells) {
				row[col] = cells[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
