package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/harunari/batchscan-api/internal/domain"
	"github.com/harunari/batchscan-api/internal/platform/logger"
	"github.com/harunari/batchscan-api/internal/store"
)

// RecordStore implements the store.RecordStore interface using a PostgreSQL
// database as the storage backend.
type RecordStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecordStore creates a new PostgreSQL implementation of the RecordStore
// interface. The database connection should be initialized and managed by
// the caller. If logger is nil, a default logger will be used.
func NewRecordStore(db *sql.DB, logger *slog.Logger) *RecordStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &RecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "record_store")),
	}
}

// Ensure RecordStore implements store.RecordStore interface
var _ store.RecordStore = (*RecordStore)(nil)

// ReplaceAll implements store.RecordStore.ReplaceAll.
// The table is cleared and repopulated inside a single transaction, so
// readers never observe a partially replaced record set.
func (s *RecordStore) ReplaceAll(ctx context.Context, records []domain.ExtractedRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM shipping_records`); err != nil {
			return fmt.Errorf("clearing shipping records: %w", err)
		}
		return insertRecords(ctx, tx, records)
	})
	if err != nil {
		log.Error("failed to replace shipping records",
			slog.String("error", err.Error()),
			slog.Int("record_count", len(records)))
		return err
	}

	log.Info("shipping records replaced", slog.Int("record_count", len(records)))
	return nil
}

// List implements store.RecordStore.List.
func (s *RecordStore) List(ctx context.Context) ([]domain.ExtractedRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	records, err := queryRecords(ctx, s.db)
	if err != nil {
		log.Error("failed to list shipping records", slog.String("error", err.Error()))
		return nil, err
	}
	return records, nil
}

// insertRecords writes the record set through any DBTX.
func insertRecords(ctx context.Context, db store.DBTX, records []domain.ExtractedRecord) error {
	const insert = `
		INSERT INTO shipping_records
			(page, ship_date, order_number, delivery_number, staff_name, total_ex_tax)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, r := range records {
		if _, err := db.ExecContext(ctx, insert,
			r.Page,
			r.ShipDate,
			r.OrderNumber,
			r.DeliveryNumber,
			r.StaffName,
			r.TotalExTax,
		); err != nil {
			return fmt.Errorf("inserting shipping record: %w", err)
		}
	}
	return nil
}

func queryRecords(ctx context.Context, db store.DBTX) ([]domain.ExtractedRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT page, ship_date, order_number, delivery_number, staff_name, total_ex_tax
		FROM shipping_records
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	records := []domain.ExtractedRecord{}
	for rows.Next() {
		var r domain.ExtractedRecord
		if err := rows.Scan(
			&r.Page,
			&r.ShipDate,
			&r.OrderNumber,
			&r.DeliveryNumber,
			&r.StaffName,
			&r.TotalExTax,
		); err != nil {
			return nil, fmt.Errorf("scanning shipping record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}
