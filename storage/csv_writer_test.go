package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ev-ad-insights/models"
)

func sampleTable() *models.Table {
	return &models.Table{
		Columns: []string{"Market", "Vehicle", "Ad_Count"},
		Rows: [][]string{
			{"Portugal", "VW ID.4", "2"},
			{"Germany", "Audi Q4 e-tron", "1"},
		},
	}
}

func TestCSVWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "market_vehicle.csv")

	w, err := NewCSVWriter(path)
	require.NoError(t, err)
	require.NoError(t, w.WriteTable(sampleTable()))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Audi Q4 e-tron", rows[1]["Vehicle"])
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sampleTable()))

	assert.Equal(t, "Market,Vehicle,Ad_Count\nPortugal,VW ID.4,2\nGermany,Audi Q4 e-tron,1\n", buf.String())
}
