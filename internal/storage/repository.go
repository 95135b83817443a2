// Package storage persists the customer table in SQLite and serves it
// back as a dataset source.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"grovq/internal/core"
	"grovq/internal/dataset"

	_ "modernc.org/sqlite"
)

// SQLiteRepository stores customer records. It implements
// dataset.Source for the read side.
type SQLiteRepository struct {
	db *sql.DB
}

var _ dataset.Source = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ImportRecords replaces the stored table with the given records in one
// transaction. Used to seed SQLite from a CSV file.
func (r *SQLiteRepository) ImportRecords(ctx context.Context, records []core.CustomerRecord) error {
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("record %q: %w", rec.ID, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM customer_extras`); err != nil {
		return fmt.Errorf("clear extras: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM customers`); err != nil {
		return fmt.Errorf("clear customers: %w", err)
	}

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO customers (customer_id, city, zone, segment, avg_order_cents, order_frequency, returned_orders, satisfaction_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	insertExtra, err := tx.PrepareContext(ctx, `
		INSERT INTO customer_extras (customer_id, name, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare extras insert: %w", err)
	}
	defer insertExtra.Close()

	for _, rec := range records {
		_, err := insert.ExecContext(ctx,
			rec.ID, rec.City, rec.Zone, rec.Segment,
			rec.AvgOrderValue.Cents, rec.OrderFrequency, rec.ReturnedOrders, rec.SatisfactionScore)
		if err != nil {
			return fmt.Errorf("insert customer %q: %w", rec.ID, err)
		}
		// Deterministic insert order keeps reimports byte-comparable.
		names := make([]string, 0, len(rec.Extra))
		for name := range rec.Extra {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if _, err := insertExtra.ExecContext(ctx, rec.ID, name, rec.Extra[name]); err != nil {
				return fmt.Errorf("insert extra %q for %q: %w", name, rec.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Customer table imported", "records", len(records))
	return nil
}

// Load implements dataset.Source. An empty table maps to
// dataset.ErrDataUnavailable, matching the missing-file behavior of the
// CSV source.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.CustomerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id, city, zone, segment, avg_order_cents, order_frequency, returned_orders, satisfaction_score
		FROM customers
		ORDER BY customer_id`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w: %v", dataset.ErrDataUnavailable, err)
	}
	defer rows.Close()

	var records []core.CustomerRecord
	index := map[string]int{}
	for rows.Next() {
		var rec core.CustomerRecord
		if err := rows.Scan(&rec.ID, &rec.City, &rec.Zone, &rec.Segment,
			&rec.AvgOrderValue.Cents, &rec.OrderFrequency, &rec.ReturnedOrders, &rec.SatisfactionScore); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("customers table is empty: %w", dataset.ErrDataUnavailable)
	}

	if err := r.loadExtras(ctx, records, index); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *SQLiteRepository) loadExtras(ctx context.Context, records []core.CustomerRecord, index map[string]int) error {
	rows, err := r.db.QueryContext(ctx, `SELECT customer_id, name, value FROM customer_extras`)
	if err != nil {
		return fmt.Errorf("query extras: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name, value string
		if err := rows.Scan(&id, &name, &value); err != nil {
			return fmt.Errorf("scan extra: %w", err)
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		if records[i].Extra == nil {
			records[i].Extra = map[string]string{}
		}
		records[i].Extra[name] = value
	}
	return rows.Err()
}

// Count returns the number of stored customers.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}
