package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]*Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	MarkSuperseded(ctx context.Context, id, successorID uuid.UUID) error

	// Duplicate-evidence lookups. Each returns previously stored invoices,
	// excluding the one under evaluation.
	FindByContentHash(ctx context.Context, hash string, exclude uuid.UUID) ([]*Invoice, error)
	FindByNaturalKey(ctx context.Context, number string, vendorID uuid.UUID, exclude uuid.UUID) ([]*Invoice, error)
	FindNearbyByVendor(ctx context.Context, vendorID uuid.UUID, from, to time.Time, exclude uuid.UUID) ([]*Invoice, error)
}

type ListFilter struct {
	Status    *Status
	VendorID  *uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateParams carries the extraction collaborator's output. An extraction
// failure is a terminal input error; the invoice is never stored.
type CreateParams struct {
	ExtractionOK bool
	Number       string
	VendorID     uuid.UUID
	VendorName   string
	Subtotal     int64
	Tax          int64
	Total        int64
	Currency     string
	Date         time.Time
	DueDate      *time.Time
	Lines        []LineItem
	PONumberHint string
	ContentHash  string
	// Supersedes, when set, marks an earlier invoice as replaced by this one.
	Supersedes *uuid.UUID
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Invoice, error) {
	if !params.ExtractionOK {
		return nil, ErrExtractionFailed
	}

	inv := &Invoice{
		Number:       params.Number,
		VendorID:     params.VendorID,
		VendorName:   params.VendorName,
		Subtotal:     params.Subtotal,
		Tax:          params.Tax,
		Total:        params.Total,
		Currency:     params.Currency,
		Date:         params.Date,
		DueDate:      params.DueDate,
		Lines:        params.Lines,
		PONumberHint: params.PONumberHint,
		ContentHash:  params.ContentHash,
		Status:       StatusReceived,
	}

	if err := inv.Validate(); err != nil {
		return nil, err
	}

	if inv.ContentHash == "" {
		inv.ContentHash = Fingerprint(inv)
	}

	if err := s.repo.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}

	if params.Supersedes != nil {
		if err := s.repo.MarkSuperseded(ctx, *params.Supersedes, inv.ID); err != nil {
			return nil, err
		}
	}

	return inv, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	return s.repo.UpdateStatus(ctx, id, status)
}
