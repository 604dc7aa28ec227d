package storage

import "ev-ad-insights/models"

// SnapshotWriter is the interface any snapshot backend must satisfy.
type SnapshotWriter interface {
	Write(records []*models.CanonicalRecord, mentions []models.FeatureMention) error
	Close() error
}

// TableWriter is the interface for persisting export tables.
type TableWriter interface {
	WriteTable(t *models.Table) error
	Close() error
}
