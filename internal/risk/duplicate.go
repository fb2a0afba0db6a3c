package risk

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/invoice"
)

// DuplicateConfig tunes the fuzzy-proximity duplicate check.
type DuplicateConfig struct {
	// AmountTolerancePct is the relative amount difference under which two
	// invoices are "the same amount".
	AmountTolerancePct float64
	// DateWindowDays is the maximum date distance for a fuzzy duplicate.
	DateWindowDays int
}

func DefaultDuplicateConfig() DuplicateConfig {
	return DuplicateConfig{AmountTolerancePct: 0.01, DateWindowDays: 5}
}

// DuplicateEvidence is the prior-invoice snapshot the detector examines. The
// caller fetches it once per evaluation; the detector itself does no I/O.
type DuplicateEvidence struct {
	SameHash       []*invoice.Invoice
	SameNaturalKey []*invoice.Invoice
	SameVendorNear []*invoice.Invoice
}

// DuplicateResult reports whether the invoice duplicates a previously seen
// one, at what severity, and which invoices triggered it.
type DuplicateResult struct {
	IsDuplicate       bool
	Severity          Severity
	SimilarInvoiceIDs []uuid.UUID
	Flags             []Flag
}

// DetectDuplicates runs the three duplicate checks. All three always run,
// even after an exact hit, so the audit evidence is complete.
func DetectDuplicates(inv *invoice.Invoice, evidence DuplicateEvidence, cfg DuplicateConfig) DuplicateResult {
	var res DuplicateResult

	seen := map[uuid.UUID]struct{}{}

	record := func(prior *invoice.Invoice, flagType FlagType, sev Severity, detail string) {
		res.IsDuplicate = true
		res.Severity = maxSeverity(res.Severity, sev)
		res.Flags = append(res.Flags, Flag{
			Kind:     SignalDuplicate,
			Type:     flagType,
			Severity: sev,
			Evidence: detail,
		})

		if _, ok := seen[prior.ID]; !ok {
			seen[prior.ID] = struct{}{}

			res.SimilarInvoiceIDs = append(res.SimilarInvoiceIDs, prior.ID)
		}
	}

	// Check 1: identical content hash.
	for _, prior := range evidence.SameHash {
		record(prior, FlagExactDuplicate, SeverityCritical,
			fmt.Sprintf("content hash matches invoice %s", prior.ID))
	}

	// Check 2: same (number, vendor) natural key on a non-rejected invoice.
	for _, prior := range evidence.SameNaturalKey {
		if prior.Status == invoice.StatusRejected {
			continue
		}

		record(prior, FlagNaturalKeyDuplicate, SeverityHigh,
			fmt.Sprintf("number %q already filed by vendor as invoice %s", inv.Number, prior.ID))
	}

	// Check 3: same vendor, amount within tolerance, dates close together.
	// Catches resubmissions with cosmetic formatting or rounding changes.
	for _, prior := range evidence.SameVendorNear {
		if prior.Number == inv.Number && prior.VendorID == inv.VendorID {
			continue // already covered by the natural-key check
		}

		if prior.Total <= 0 {
			continue
		}

		rel := math.Abs(float64(inv.Total-prior.Total)) / float64(prior.Total)
		if rel > cfg.AmountTolerancePct {
			continue
		}

		days := math.Abs(inv.Date.Sub(prior.Date).Hours() / 24)
		if days > float64(cfg.DateWindowDays) {
			continue
		}

		record(prior, FlagSimilarInvoice, SeverityMedium,
			fmt.Sprintf("invoice %s from same vendor within %.1f%% and %d days",
				prior.ID, rel*100, int(days)))
	}

	return res
}
