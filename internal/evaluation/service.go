// Package evaluation orchestrates the reconciliation pipeline for one
// invoice: PO matching, discrepancy detection and the risk detectors, with
// all storage reads taken once up front as immutable snapshots.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/invoice"
	"github.com/apguard/apguard/internal/matching"
	"github.com/apguard/apguard/internal/po"
	"github.com/apguard/apguard/internal/risk"
	"github.com/apguard/apguard/internal/vendors"
)

// Result is the combined outcome of one evaluation. Re-running an evaluation
// produces a fresh result that supersedes the old one; nothing is applied
// partially.
type Result struct {
	Invoice    *invoice.Invoice
	Match      matching.MatchResult
	Assessment *risk.Assessment
}

type Service struct {
	invoices invoice.Repository
	orders   po.Repository
	vendors  vendor.Repository

	engine   *matching.Engine
	detector *matching.Detector
	dupCfg   risk.DuplicateConfig

	waves [][]stage
}

func NewService(invoices invoice.Repository, orders po.Repository, vendors vendor.Repository, matchCfg matching.Config) (*Service, error) {
	if err := risk.ValidateWeights(); err != nil {
		return nil, err
	}

	engine, err := matching.NewEngine(matchCfg)
	if err != nil {
		return nil, err
	}

	s := &Service{
		invoices: invoices,
		orders:   orders,
		vendors:  vendors,
		engine:   engine,
		detector: matching.NewDetector(matchCfg),
		dupCfg:   risk.DefaultDuplicateConfig(),
	}

	// The stage list is fixed; order is resolved here once so evaluation is
	// deterministic and statically checkable.
	waves, err := buildWaves([]stage{
		{name: "match", run: s.stageMatch},
		{name: "discrepancy", deps: []string{"match"}, run: s.stageDiscrepancy},
		{name: "duplicate", run: s.stageDuplicate},
		{name: "vendor", run: s.stageVendor},
		{name: "price", run: s.stagePrice},
		{name: "aggregate", deps: []string{"match", "discrepancy", "duplicate", "vendor", "price"}, run: s.stageAggregate},
	})
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	s.waves = waves

	return s, nil
}

// evalState carries one evaluation's snapshots and intermediate results.
// Stages within a wave write disjoint fields; waves are synchronization
// points, so no locking is needed.
type evalState struct {
	at  time.Time
	inv *invoice.Invoice

	candidates         []*po.PurchaseOrder
	dupEvidence        risk.DuplicateEvidence
	snapshot           vendor.Snapshot
	categoryBaselines  map[string]vendor.Baseline
	vendorDataDegraded bool

	match      matching.MatchResult
	duplicate  risk.DuplicateResult
	vendorRes  risk.VendorResult
	priceRes   risk.PriceResult
	assessment *risk.Assessment
}

// Evaluate runs the full pipeline for a stored invoice: fetch the snapshots,
// match against PO candidates, run the risk detectors concurrently and
// aggregate. The evaluation time is explicit so results are reproducible.
func (s *Service) Evaluate(ctx context.Context, invoiceID uuid.UUID, at time.Time) (*Result, error) {
	inv, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	st := &evalState{at: at, inv: inv}

	if err := s.fetchSnapshots(ctx, st); err != nil {
		return nil, err
	}

	if err := runWaves(ctx, s.waves, st); err != nil {
		return nil, err
	}

	return &Result{Invoice: inv, Match: st.match, Assessment: st.assessment}, nil
}

// EvaluateMatch scores an invoice against an explicit candidate list without
// touching storage. This is the pure entry point external callers use when
// they already hold the candidates.
func (s *Service) EvaluateMatch(inv *invoice.Invoice, candidates []*po.PurchaseOrder) (matching.MatchResult, error) {
	if err := inv.Validate(); err != nil {
		return matching.MatchResult{}, err
	}

	res := s.engine.Evaluate(inv, candidates)
	res = s.detector.Detect(inv, findMatched(res, candidates), res)

	return res, nil
}

// AssessRisk combines a match result and a vendor snapshot into a risk
// assessment, fetching only the duplicate evidence and category baselines.
func (s *Service) AssessRisk(ctx context.Context, inv *invoice.Invoice, match matching.MatchResult, snap vendor.Snapshot, at time.Time) (*risk.Assessment, error) {
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	st := &evalState{at: at, inv: inv, match: match, snapshot: snap}

	var err error
	if st.dupEvidence, err = s.fetchDuplicateEvidence(ctx, inv); err != nil {
		return nil, err
	}

	st.categoryBaselines, err = s.vendors.GetCategoryBaselines(ctx, at)
	if err != nil {
		slog.Warn("category baselines unavailable, proceeding degraded", "error", err)

		st.vendorDataDegraded = true
	}

	st.duplicate = risk.DetectDuplicates(inv, st.dupEvidence, s.dupCfg)
	st.vendorRes = risk.AnalyzeVendor(snap)
	st.priceRes = risk.DetectPriceAnomalies(inv, snap, st.categoryBaselines)

	return s.aggregate(st), nil
}

// fetchSnapshots reads everything the pure detectors need, once. Vendor
// reads are retried once and then degrade to the conservative unknown
// sentinel; invoice-side reads are load-bearing and fail the evaluation.
func (s *Service) fetchSnapshots(ctx context.Context, st *evalState) error {
	var err error

	st.candidates, err = s.orders.FindCandidates(ctx, st.inv.VendorID, st.inv.PONumberHint)
	if err != nil {
		return fmt.Errorf("fetching PO candidates: %w", err)
	}

	st.dupEvidence, err = s.fetchDuplicateEvidence(ctx, st.inv)
	if err != nil {
		return err
	}

	st.snapshot, err = s.fetchVendorSnapshot(ctx, st.inv.VendorID, st.at)
	if err != nil {
		slog.Warn("vendor snapshot unavailable, scoring conservatively",
			"vendor_id", st.inv.VendorID, "error", err)

		st.snapshot = vendor.Unknown(st.inv.VendorID, st.at)
		st.vendorDataDegraded = true
	}

	st.categoryBaselines, err = s.vendors.GetCategoryBaselines(ctx, st.at)
	if err != nil {
		slog.Warn("category baselines unavailable, proceeding degraded", "error", err)

		st.vendorDataDegraded = true
	}

	return nil
}

// fetchVendorSnapshot retries once; vendor reads are the only flaky external
// dependency and a single retry papers over transient failures.
func (s *Service) fetchVendorSnapshot(ctx context.Context, id uuid.UUID, at time.Time) (vendor.Snapshot, error) {
	snap, err := s.vendors.GetSnapshot(ctx, id, at)
	if err == nil {
		return snap, nil
	}

	return s.vendors.GetSnapshot(ctx, id, at)
}

func (s *Service) fetchDuplicateEvidence(ctx context.Context, inv *invoice.Invoice) (risk.DuplicateEvidence, error) {
	var (
		ev  risk.DuplicateEvidence
		err error
	)

	if ev.SameHash, err = s.invoices.FindByContentHash(ctx, inv.ContentHash, inv.ID); err != nil {
		return ev, fmt.Errorf("fetching hash duplicates: %w", err)
	}

	if ev.SameNaturalKey, err = s.invoices.FindByNaturalKey(ctx, inv.Number, inv.VendorID, inv.ID); err != nil {
		return ev, fmt.Errorf("fetching natural-key duplicates: %w", err)
	}

	window := time.Duration(s.dupCfg.DateWindowDays) * 24 * time.Hour

	ev.SameVendorNear, err = s.invoices.FindNearbyByVendor(ctx,
		inv.VendorID, inv.Date.Add(-window), inv.Date.Add(window), inv.ID)
	if err != nil {
		return ev, fmt.Errorf("fetching nearby invoices: %w", err)
	}

	return ev, nil
}

func (s *Service) stageMatch(_ context.Context, st *evalState) error {
	st.match = s.engine.Evaluate(st.inv, st.candidates)
	return nil
}

func (s *Service) stageDiscrepancy(_ context.Context, st *evalState) error {
	st.match = s.detector.Detect(st.inv, findMatched(st.match, st.candidates), st.match)
	return nil
}

func (s *Service) stageDuplicate(_ context.Context, st *evalState) error {
	st.duplicate = risk.DetectDuplicates(st.inv, st.dupEvidence, s.dupCfg)
	return nil
}

func (s *Service) stageVendor(_ context.Context, st *evalState) error {
	st.vendorRes = risk.AnalyzeVendor(st.snapshot)
	return nil
}

func (s *Service) stagePrice(_ context.Context, st *evalState) error {
	st.priceRes = risk.DetectPriceAnomalies(st.inv, st.snapshot, st.categoryBaselines)
	return nil
}

func (s *Service) stageAggregate(_ context.Context, st *evalState) error {
	st.assessment = s.aggregate(st)
	return nil
}

func (s *Service) aggregate(st *evalState) *risk.Assessment {
	return risk.Aggregate(risk.Inputs{
		Invoice:    st.inv,
		Match:      st.match,
		Duplicate:  st.duplicate,
		Vendor:     st.vendorRes,
		Price:      st.priceRes,
		Snapshot:   st.snapshot,
		Degraded:   st.vendorDataDegraded,
		AssessedAt: st.at,
	})
}

// findMatched resolves the matched PO out of the candidate set, or nil for a
// none-match.
func findMatched(res matching.MatchResult, candidates []*po.PurchaseOrder) *po.PurchaseOrder {
	if res.POID == nil {
		return nil
	}

	for _, cand := range candidates {
		if cand.ID == *res.POID {
			return cand
		}
	}

	return nil
}
