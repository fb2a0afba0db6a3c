package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/invoice"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectInvoiceColumns = `
	id, number, vendor_id, vendor_name, subtotal, tax, total, currency,
	date, due_date, lines, po_number_hint, content_hash, status,
	superseded_by, created_at, updated_at
`

func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var inv invoice.Invoice

	var statusStr string

	var linesJSON []byte

	var dueDate sql.NullTime

	if err := s.Scan(
		&inv.ID, &inv.Number, &inv.VendorID, &inv.VendorName,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.Currency,
		&inv.Date, &dueDate, &linesJSON, &inv.PONumberHint, &inv.ContentHash,
		&statusStr, &inv.SupersededBy, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	inv.Status = invoice.Status(statusStr)

	if dueDate.Valid {
		d := dueDate.Time
		inv.DueDate = &d
	}

	if len(linesJSON) > 0 {
		if err := json.Unmarshal(linesJSON, &inv.Lines); err != nil {
			return nil, fmt.Errorf("decoding lines: %w", err)
		}
	}

	return &inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	linesJSON, err := json.Marshal(inv.Lines)
	if err != nil {
		return fmt.Errorf("encoding lines: %w", err)
	}

	query := `
		INSERT INTO invoices (number, vendor_id, vendor_name, subtotal, tax, total,
			currency, date, due_date, lines, po_number_hint, content_hash, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		inv.Number, inv.VendorID, inv.VendorName, inv.Subtotal, inv.Tax, inv.Total,
		inv.Currency, inv.Date, inv.DueDate, linesJSON, inv.PONumberHint,
		inv.ContentHash, inv.Status,
	).Scan(&inv.ID, &inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM invoices WHERE id = $1`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + ` FROM invoices WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.VendorID != nil {
		query += fmt.Sprintf(" AND vendor_id = $%d", argIdx)
		args = append(args, *filter.VendorID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY date DESC, created_at DESC"

	return s.queryInvoices(ctx, query, args...)
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status invoice.Status) error {
	query := `UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("updating invoice status: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return invoice.ErrNotFound
	}

	return nil
}

func (s *Store) MarkSuperseded(ctx context.Context, id, successorID uuid.UUID) error {
	query := `
		UPDATE invoices SET status = $2, superseded_by = $3, updated_at = NOW()
		WHERE id = $1
	`

	res, err := s.db.ExecContext(ctx, query, id, invoice.StatusSuperseded, successorID)
	if err != nil {
		return fmt.Errorf("marking invoice superseded: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return invoice.ErrNotFound
	}

	return nil
}

func (s *Store) FindByContentHash(ctx context.Context, hash string, exclude uuid.UUID) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
		WHERE content_hash = $1 AND id != $2 AND status != $3
		ORDER BY created_at ASC`

	return s.queryInvoices(ctx, query, hash, exclude, invoice.StatusSuperseded)
}

func (s *Store) FindByNaturalKey(ctx context.Context, number string, vendorID uuid.UUID, exclude uuid.UUID) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
		WHERE number = $1 AND vendor_id = $2 AND id != $3
			AND status NOT IN ($4, $5)
		ORDER BY created_at ASC`

	return s.queryInvoices(ctx, query, number, vendorID, exclude,
		invoice.StatusRejected, invoice.StatusSuperseded)
}

func (s *Store) FindNearbyByVendor(ctx context.Context, vendorID uuid.UUID, from, to time.Time, exclude uuid.UUID) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM invoices
		WHERE vendor_id = $1 AND date BETWEEN $2 AND $3 AND id != $4
			AND status != $5
		ORDER BY date ASC, created_at ASC`

	return s.queryInvoices(ctx, query, vendorID, from, to, exclude, invoice.StatusSuperseded)
}

func (s *Store) queryInvoices(ctx context.Context, query string, args ...any) ([]*invoice.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying invoices: %w", err)
	}
	defer rows.Close()

	var invs []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invs = append(invs, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invs, nil
}
