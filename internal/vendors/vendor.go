package vendor

import (
	"time"

	"github.com/google/uuid"
)

// Baseline is the historical price distribution for one item category (or for
// whole-invoice totals when Category is empty). Values are minor currency
// units; Mean and StdDev are kept as floats since they are derived statistics,
// not money that moves.
type Baseline struct {
	Category     string
	Mean         float64
	StdDev       float64
	Observations int
}

// Snapshot is the read-only view of a vendor's behavioral history taken at
// the start of one risk evaluation. Detectors never reach back to storage;
// everything they need is here, and the snapshot travels with the resulting
// assessment so scores can be reproduced later.
type Snapshot struct {
	ID   uuid.UUID
	Name string
	// Known is false for the unknown-vendor sentinel: no record exists and
	// risk is scored conservatively instead of computed.
	Known bool

	OnTimePaymentRate float64
	PaymentCount      int

	FirstInvoiceAt time.Time
	LastInvoiceAt  time.Time
	InvoiceCount   int

	OpenFraudFlags int

	// Baselines is keyed by item category. TotalBaseline covers invoice
	// totals.
	Baselines     map[string]Baseline
	TotalBaseline Baseline

	AsOf time.Time
}

// Unknown returns the sentinel snapshot for a vendor with no record.
func Unknown(id uuid.UUID, asOf time.Time) Snapshot {
	return Snapshot{ID: id, Known: false, AsOf: asOf}
}

// HistoryDays is the age of the vendor relationship at the snapshot time.
func (s Snapshot) HistoryDays() int {
	if s.FirstInvoiceAt.IsZero() {
		return 0
	}

	return int(s.AsOf.Sub(s.FirstInvoiceAt).Hours() / 24)
}

// DaysSinceLastInvoice returns how long the vendor has been dormant.
func (s Snapshot) DaysSinceLastInvoice() int {
	if s.LastInvoiceAt.IsZero() {
		return 0
	}

	return int(s.AsOf.Sub(s.LastInvoiceAt).Hours() / 24)
}
