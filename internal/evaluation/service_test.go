package evaluation_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/apguard/apguard/internal/evaluation"
	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/matching"
	"github.com/apguard/apguard/internal/po"
	"github.com/apguard/apguard/internal/risk"
	"github.com/apguard/apguard/internal/vendors"
)

var evalAt = time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC)

type repos struct {
	invoices *invoice.MockRepository
	orders   *po.MockRepository
	vendors  *vendor.MockRepository
}

func newService(t *testing.T) (*evaluation.Service, repos) {
	t.Helper()

	ctrl := gomock.NewController(t)
	r := repos{
		invoices: invoice.NewMockRepository(ctrl),
		orders:   po.NewMockRepository(ctrl),
		vendors:  vendor.NewMockRepository(ctrl),
	}

	svc, err := evaluation.NewService(r.invoices, r.orders, r.vendors, matching.DefaultConfig())
	require.NoError(t, err)

	return svc, r
}

func storedInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		ID:         uuid.New(),
		Number:     "INV-42",
		VendorID:   uuid.New(),
		VendorName: "Acme Corp",
		Subtotal:   100_000,
		Tax:        5_033,
		Total:      105_033,
		Currency:   "USD",
		Date:       evalAt.AddDate(0, 0, -1),
		Lines: []invoice.LineItem{
			{Description: "Blue widgets", Quantity: 10, UnitPrice: 10_000, Total: 100_000, Category: "widgets"},
		},
		ContentHash: "abc123",
		Status:      invoice.StatusReceived,
	}
}

func trustedSnapshot(vendorID uuid.UUID) vendor.Snapshot {
	return vendor.Snapshot{
		ID:                vendorID,
		Name:              "Acme Corp",
		Known:             true,
		OnTimePaymentRate: 0.95,
		PaymentCount:      40,
		FirstInvoiceAt:    evalAt.AddDate(-2, 0, 0),
		LastInvoiceAt:     evalAt.AddDate(0, 0, -10),
		InvoiceCount:      60,
		AsOf:              evalAt,
	}
}

// expectCleanEvidence wires the duplicate-evidence lookups to return nothing.
func expectCleanEvidence(m *invoice.MockRepository, inv *invoice.Invoice) {
	m.EXPECT().FindByContentHash(gomock.Any(), inv.ContentHash, inv.ID).Return(nil, nil)
	m.EXPECT().FindByNaturalKey(gomock.Any(), inv.Number, inv.VendorID, inv.ID).Return(nil, nil)
	m.EXPECT().FindNearbyByVendor(gomock.Any(), inv.VendorID, gomock.Any(), gomock.Any(), inv.ID).Return(nil, nil)
}

func TestEvaluate(t *testing.T) {
	svc, r := newService(t)
	inv := storedInvoice()

	matchedPO := &po.PurchaseOrder{
		ID:         uuid.New(),
		Number:     "PO-100",
		VendorID:   inv.VendorID,
		VendorName: "Acme Corp",
		Total:      105_033,
		Currency:   "USD",
		OrderDate:  inv.Date.AddDate(0, 0, -5),
		Status:     po.StatusOpen,
		Lines: []po.Line{
			{Description: "Blue widgets", Quantity: 10, UnitPrice: 10_000, Category: "widgets"},
		},
	}

	r.invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	r.orders.EXPECT().FindCandidates(gomock.Any(), inv.VendorID, "").Return([]*po.PurchaseOrder{matchedPO}, nil)
	expectCleanEvidence(r.invoices, inv)
	r.vendors.EXPECT().GetSnapshot(gomock.Any(), inv.VendorID, evalAt).Return(trustedSnapshot(inv.VendorID), nil)
	r.vendors.EXPECT().GetCategoryBaselines(gomock.Any(), evalAt).Return(nil, nil)

	res, err := svc.Evaluate(context.Background(), inv.ID, evalAt)
	require.NoError(t, err)

	require.NotNil(t, res.Assessment)
	assert.Equal(t, inv.ID, res.Assessment.InvoiceID)
	assert.False(t, res.Assessment.Degraded)

	require.NotNil(t, res.Match.POID)
	assert.Equal(t, matchedPO.ID, *res.Match.POID)
	assert.NotEqual(t, matching.MatchNone, res.Match.MatchType)
}

func TestEvaluate_InvoiceLookupFails(t *testing.T) {
	svc, r := newService(t)
	id := uuid.New()

	r.invoices.EXPECT().GetInvoice(gomock.Any(), id).Return(nil, invoice.ErrNotFound)

	_, err := svc.Evaluate(context.Background(), id, evalAt)
	assert.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestEvaluate_CandidateLookupFails(t *testing.T) {
	// PO candidate reads are load-bearing; they fail the whole evaluation
	// instead of degrading it.
	svc, r := newService(t)
	inv := storedInvoice()

	r.invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	r.orders.EXPECT().FindCandidates(gomock.Any(), inv.VendorID, "").Return(nil, assert.AnError)

	_, err := svc.Evaluate(context.Background(), inv.ID, evalAt)
	assert.ErrorContains(t, err, "fetching PO candidates")
}

func TestEvaluate_DuplicateEvidenceFails(t *testing.T) {
	svc, r := newService(t)
	inv := storedInvoice()

	r.invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	r.orders.EXPECT().FindCandidates(gomock.Any(), inv.VendorID, "").Return(nil, nil)
	r.invoices.EXPECT().FindByContentHash(gomock.Any(), inv.ContentHash, inv.ID).Return(nil, assert.AnError)

	_, err := svc.Evaluate(context.Background(), inv.ID, evalAt)
	assert.ErrorContains(t, err, "fetching hash duplicates")
}

func TestEvaluate_VendorSnapshotRetriesThenDegrades(t *testing.T) {
	svc, r := newService(t)
	inv := storedInvoice()

	r.invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	r.orders.EXPECT().FindCandidates(gomock.Any(), inv.VendorID, "").Return(nil, nil)
	expectCleanEvidence(r.invoices, inv)
	r.vendors.EXPECT().GetSnapshot(gomock.Any(), inv.VendorID, evalAt).
		Return(vendor.Snapshot{}, assert.AnError).Times(2)
	r.vendors.EXPECT().GetCategoryBaselines(gomock.Any(), evalAt).Return(nil, nil)

	res, err := svc.Evaluate(context.Background(), inv.ID, evalAt)
	require.NoError(t, err)

	assert.True(t, res.Assessment.Degraded)
	assert.False(t, res.Assessment.BaselineSnapshot.Known)

	types := make([]risk.FlagType, 0, len(res.Assessment.Flags))
	for _, f := range res.Assessment.Flags {
		types = append(types, f.Type)
	}

	assert.Contains(t, types, risk.FlagUnknownVendor)
	assert.Contains(t, types, risk.FlagDetectorDegraded)
}

func TestEvaluate_VendorSnapshotRetrySucceeds(t *testing.T) {
	svc, r := newService(t)
	inv := storedInvoice()

	first := r.vendors.EXPECT().GetSnapshot(gomock.Any(), inv.VendorID, evalAt).
		Return(vendor.Snapshot{}, assert.AnError)
	r.vendors.EXPECT().GetSnapshot(gomock.Any(), inv.VendorID, evalAt).
		Return(trustedSnapshot(inv.VendorID), nil).After(first)

	r.invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)
	r.orders.EXPECT().FindCandidates(gomock.Any(), inv.VendorID, "").Return(nil, nil)
	expectCleanEvidence(r.invoices, inv)
	r.vendors.EXPECT().GetCategoryBaselines(gomock.Any(), evalAt).Return(nil, nil)

	res, err := svc.Evaluate(context.Background(), inv.ID, evalAt)
	require.NoError(t, err)

	assert.False(t, res.Assessment.Degraded)
	assert.True(t, res.Assessment.BaselineSnapshot.Known)
}

func TestEvaluate_InvalidStoredInvoice(t *testing.T) {
	svc, r := newService(t)
	inv := storedInvoice()
	inv.Total = 0

	r.invoices.EXPECT().GetInvoice(gomock.Any(), inv.ID).Return(inv, nil)

	_, err := svc.Evaluate(context.Background(), inv.ID, evalAt)
	assert.ErrorIs(t, err, invoice.ErrInvalid)
}

func TestEvaluateMatch(t *testing.T) {
	svc, _ := newService(t)
	inv := storedInvoice()

	res, err := svc.EvaluateMatch(inv, nil)
	require.NoError(t, err)

	assert.Equal(t, matching.MatchNone, res.MatchType)
	assert.True(t, res.RequiresReview)
}

func TestAssessRisk(t *testing.T) {
	svc, r := newService(t)
	inv := storedInvoice()

	expectCleanEvidence(r.invoices, inv)
	r.vendors.EXPECT().GetCategoryBaselines(gomock.Any(), evalAt).Return(nil, nil)

	a, err := svc.AssessRisk(context.Background(), inv,
		matching.MatchResult{MatchType: matching.MatchExact}, trustedSnapshot(inv.VendorID), evalAt)
	require.NoError(t, err)

	assert.Equal(t, inv.ID, a.InvoiceID)
	assert.False(t, a.Degraded)
	assert.Equal(t, evalAt, a.AssessedAt)
}
