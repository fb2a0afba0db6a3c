package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/vendors"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetSnapshot assembles the read-only vendor view from the vendors, payments,
// fraud_flags and price_history tables. Missing vendor rows produce the
// unknown sentinel rather than an error.
func (s *Store) GetSnapshot(ctx context.Context, id uuid.UUID, asOf time.Time) (vendor.Snapshot, error) {
	snap := vendor.Snapshot{ID: id, AsOf: asOf, Baselines: map[string]vendor.Baseline{}}

	query := `SELECT name FROM vendors WHERE id = $1`

	if err := s.db.QueryRowContext(ctx, query, id).Scan(&snap.Name); err != nil {
		if err == sql.ErrNoRows {
			return vendor.Unknown(id, asOf), nil
		}

		return vendor.Snapshot{}, fmt.Errorf("getting vendor: %w", err)
	}

	snap.Known = true

	if err := s.loadPaymentStats(ctx, id, asOf, &snap); err != nil {
		return vendor.Snapshot{}, err
	}

	if err := s.loadActivity(ctx, id, asOf, &snap); err != nil {
		return vendor.Snapshot{}, err
	}

	if err := s.loadFraudFlags(ctx, id, &snap); err != nil {
		return vendor.Snapshot{}, err
	}

	if err := s.loadBaselines(ctx, id, asOf, &snap); err != nil {
		return vendor.Snapshot{}, err
	}

	return snap, nil
}

func (s *Store) loadPaymentStats(ctx context.Context, id uuid.UUID, asOf time.Time, snap *vendor.Snapshot) error {
	query := `
		SELECT COUNT(*), COALESCE(AVG(CASE WHEN paid_at <= due_at THEN 1.0 ELSE 0.0 END), 0)
		FROM payments
		WHERE vendor_id = $1 AND paid_at <= $2
	`

	err := s.db.QueryRowContext(ctx, query, id, asOf).
		Scan(&snap.PaymentCount, &snap.OnTimePaymentRate)
	if err != nil {
		return fmt.Errorf("loading payment stats: %w", err)
	}

	return nil
}

func (s *Store) loadActivity(ctx context.Context, id uuid.UUID, asOf time.Time, snap *vendor.Snapshot) error {
	query := `
		SELECT COUNT(*), COALESCE(MIN(date), 'epoch'::timestamptz), COALESCE(MAX(date), 'epoch'::timestamptz)
		FROM invoices
		WHERE vendor_id = $1 AND date <= $2 AND status != 'superseded'
	`

	var first, last time.Time

	err := s.db.QueryRowContext(ctx, query, id, asOf).
		Scan(&snap.InvoiceCount, &first, &last)
	if err != nil {
		return fmt.Errorf("loading vendor activity: %w", err)
	}

	if snap.InvoiceCount > 0 {
		snap.FirstInvoiceAt = first
		snap.LastInvoiceAt = last
	}

	return nil
}

func (s *Store) loadFraudFlags(ctx context.Context, id uuid.UUID, snap *vendor.Snapshot) error {
	query := `SELECT COUNT(*) FROM fraud_flags WHERE vendor_id = $1 AND resolved_at IS NULL`

	if err := s.db.QueryRowContext(ctx, query, id).Scan(&snap.OpenFraudFlags); err != nil {
		return fmt.Errorf("loading fraud flags: %w", err)
	}

	return nil
}

// GetCategoryBaselines aggregates price history across all vendors per item
// category. Used as the fallback when a single vendor's history is sparse.
func (s *Store) GetCategoryBaselines(ctx context.Context, asOf time.Time) (map[string]vendor.Baseline, error) {
	query := `
		SELECT category, AVG(amount), COALESCE(STDDEV_POP(amount), 0), COUNT(*)
		FROM price_history
		WHERE observed_at <= $1 AND category != ''
		GROUP BY category
	`

	rows, err := s.db.QueryContext(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("loading category baselines: %w", err)
	}
	defer rows.Close()

	out := make(map[string]vendor.Baseline)

	for rows.Next() {
		var b vendor.Baseline
		if err := rows.Scan(&b.Category, &b.Mean, &b.StdDev, &b.Observations); err != nil {
			return nil, fmt.Errorf("scanning category baseline: %w", err)
		}

		out[b.Category] = b
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating category baselines: %w", err)
	}

	return out, nil
}

// loadBaselines reads per-category price distributions. The empty category
// row holds the whole-invoice total distribution.
func (s *Store) loadBaselines(ctx context.Context, id uuid.UUID, asOf time.Time, snap *vendor.Snapshot) error {
	query := `
		SELECT category, AVG(amount), COALESCE(STDDEV_POP(amount), 0), COUNT(*)
		FROM price_history
		WHERE vendor_id = $1 AND observed_at <= $2
		GROUP BY category
	`

	rows, err := s.db.QueryContext(ctx, query, id, asOf)
	if err != nil {
		return fmt.Errorf("loading price baselines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b vendor.Baseline
		if err := rows.Scan(&b.Category, &b.Mean, &b.StdDev, &b.Observations); err != nil {
			return fmt.Errorf("scanning baseline: %w", err)
		}

		if b.Category == "" {
			snap.TotalBaseline = b
			continue
		}

		snap.Baselines[b.Category] = b
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating baselines: %w", err)
	}

	return nil
}
