package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/po"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

const selectPOColumns = `
	id, number, vendor_id, vendor_name, lines, total, currency, order_date, status, created_at
`

func scanPurchaseOrder(s scanner) (*po.PurchaseOrder, error) {
	var order po.PurchaseOrder

	var statusStr string

	var linesJSON []byte

	if err := s.Scan(
		&order.ID, &order.Number, &order.VendorID, &order.VendorName,
		&linesJSON, &order.Total, &order.Currency, &order.OrderDate,
		&statusStr, &order.CreatedAt,
	); err != nil {
		return nil, err
	}

	order.Status = po.Status(statusStr)

	if len(linesJSON) > 0 {
		if err := json.Unmarshal(linesJSON, &order.Lines); err != nil {
			return nil, fmt.Errorf("decoding lines: %w", err)
		}
	}

	return &order, nil
}

func (s *Store) CreatePurchaseOrder(ctx context.Context, order *po.PurchaseOrder) error {
	linesJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("encoding lines: %w", err)
	}

	query := `
		INSERT INTO purchase_orders (number, vendor_id, vendor_name, lines, total, currency, order_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (number) DO UPDATE SET
			vendor_id = EXCLUDED.vendor_id,
			vendor_name = EXCLUDED.vendor_name,
			lines = EXCLUDED.lines,
			total = EXCLUDED.total,
			currency = EXCLUDED.currency,
			order_date = EXCLUDED.order_date,
			status = EXCLUDED.status
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		order.Number, order.VendorID, order.VendorName, linesJSON,
		order.Total, order.Currency, order.OrderDate, order.Status,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating purchase order: %w", err)
	}

	return nil
}

func (s *Store) GetByNumber(ctx context.Context, number string) (*po.PurchaseOrder, error) {
	query := `SELECT ` + selectPOColumns + ` FROM purchase_orders WHERE number = $1`

	order, err := scanPurchaseOrder(s.db.QueryRowContext(ctx, query, number))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, po.ErrNotFound
		}

		return nil, fmt.Errorf("getting purchase order: %w", err)
	}

	return order, nil
}

func (s *Store) FindCandidates(ctx context.Context, vendorID uuid.UUID, numberHint string) ([]*po.PurchaseOrder, error) {
	query := `SELECT ` + selectPOColumns + `
		FROM purchase_orders
		WHERE (vendor_id = $1 AND status != $2) OR ($3 != '' AND number = $3)
		ORDER BY order_date DESC
		LIMIT 50`

	rows, err := s.db.QueryContext(ctx, query, vendorID, po.StatusClosed, numberHint)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var orders []*po.PurchaseOrder

	for rows.Next() {
		order, err := scanPurchaseOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning purchase order: %w", err)
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating purchase orders: %w", err)
	}

	return orders, nil
}
