package evaluation

import (
	"time"

	"github.com/google/uuid"

	"github.com/apguard/apguard/internal/evaluation"
	"github.com/apguard/apguard/internal/matching"
	"github.com/apguard/apguard/internal/risk"
)

type discrepancyDTO struct {
	Type     matching.DiscrepancyType `json:"type"`
	Severity matching.Severity        `json:"severity"`
	Field    string                   `json:"field"`
	Expected string                   `json:"expected"`
	Actual   string                   `json:"actual"`
}

type lineMatchDTO struct {
	InvoiceLine   int     `json:"invoice_line"`
	POLine        int     `json:"po_line"`
	Similarity    float64 `json:"similarity"`
	QuantityMatch bool    `json:"quantity_match"`
	PriceVariance float64 `json:"price_variance"`
}

type matchDTO struct {
	MatchType      matching.MatchType `json:"match_type"`
	Score          float64            `json:"score"`
	POID           *uuid.UUID         `json:"po_id,omitempty"`
	PONumber       string             `json:"po_number,omitempty"`
	LineMatches    []lineMatchDTO     `json:"line_matches,omitempty"`
	Discrepancies  []discrepancyDTO   `json:"discrepancies,omitempty"`
	RequiresReview bool               `json:"requires_review"`
}

type flagDTO struct {
	Kind     risk.SignalKind `json:"kind"`
	Type     risk.FlagType   `json:"type"`
	Severity risk.Severity   `json:"severity"`
	Evidence string          `json:"evidence,omitempty"`
}

type assessmentDTO struct {
	Score             float64                     `json:"score"`
	Level             risk.Level                  `json:"level"`
	Action            risk.Action                 `json:"action"`
	Flags             []flagDTO                   `json:"flags"`
	Components        map[risk.SignalKind]float64 `json:"components"`
	SimilarInvoiceIDs []uuid.UUID                 `json:"similar_invoice_ids,omitempty"`
	Degraded          bool                        `json:"degraded,omitempty"`
	AssessedAt        time.Time                   `json:"assessed_at"`
}

type resultResponse struct {
	InvoiceID  uuid.UUID     `json:"invoice_id"`
	Match      matchDTO      `json:"match"`
	Assessment assessmentDTO `json:"assessment"`
}

func toResponse(res *evaluation.Result) resultResponse {
	return resultResponse{
		InvoiceID:  res.Invoice.ID,
		Match:      toMatchDTO(res.Match),
		Assessment: toAssessmentDTO(res.Assessment),
	}
}

func toMatchDTO(m matching.MatchResult) matchDTO {
	lines := make([]lineMatchDTO, 0, len(m.LineMatches))
	for _, lm := range m.LineMatches {
		lines = append(lines, lineMatchDTO{
			InvoiceLine:   lm.InvoiceLine,
			POLine:        lm.POLine,
			Similarity:    lm.Similarity,
			QuantityMatch: lm.QuantityMatch,
			PriceVariance: lm.PriceVariance,
		})
	}

	discrepancies := make([]discrepancyDTO, 0, len(m.Discrepancies))
	for _, d := range m.Discrepancies {
		discrepancies = append(discrepancies, discrepancyDTO{
			Type:     d.Type,
			Severity: d.Severity,
			Field:    d.Field,
			Expected: d.Expected,
			Actual:   d.Actual,
		})
	}

	return matchDTO{
		MatchType:      m.MatchType,
		Score:          m.Score,
		POID:           m.POID,
		PONumber:       m.PONumber,
		LineMatches:    lines,
		Discrepancies:  discrepancies,
		RequiresReview: m.RequiresReview,
	}
}

func toAssessmentDTO(a *risk.Assessment) assessmentDTO {
	flags := make([]flagDTO, 0, len(a.Flags))
	for _, f := range a.Flags {
		flags = append(flags, flagDTO{
			Kind:     f.Kind,
			Type:     f.Type,
			Severity: f.Severity,
			Evidence: f.Evidence,
		})
	}

	return assessmentDTO{
		Score:             a.Score,
		Level:             a.Level,
		Action:            a.Action,
		Flags:             flags,
		Components:        a.Components,
		SimilarInvoiceIDs: a.SimilarInvoiceIDs,
		Degraded:          a.Degraded,
		AssessedAt:        a.AssessedAt,
	}
}
