package store

import (
	"context"

	"github.com/harunari/batchscan-api/internal/domain"
)

// RecordStore defines the interface for persisting extracted shipping
// records. The backing table is flat and fully replaced on every save; there
// are no incremental update semantics.
type RecordStore interface {
	// ReplaceAll atomically replaces the stored record set with the given
	// records. An empty slice clears the table.
	ReplaceAll(ctx context.Context, records []domain.ExtractedRecord) error

	// List returns all stored records in insertion order.
	List(ctx context.Context) ([]domain.ExtractedRecord, error)
}
