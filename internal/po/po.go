package po

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status of a purchase order relative to fulfilment.
type Status string

const (
	StatusOpen    Status = "open"
	StatusPartial Status = "partial"
	StatusClosed  Status = "closed"
)

var ErrNotFound = errors.New("purchase order not found")

// Line is a single ordered item. Amounts are minor currency units.
type Line struct {
	Description string
	Quantity    int64
	UnitPrice   int64
	Category    string
}

// PurchaseOrder is owned by the purchasing system; this core only reads
// candidate sets for matching.
type PurchaseOrder struct {
	ID         uuid.UUID
	Number     string
	VendorID   uuid.UUID
	VendorName string
	Lines      []Line
	Total      int64
	Currency   string
	OrderDate  time.Time
	Status     Status
	CreatedAt  time.Time
}
