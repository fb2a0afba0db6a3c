package po

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=po
type Repository interface {
	CreatePurchaseOrder(ctx context.Context, order *PurchaseOrder) error
	GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error)
	// FindCandidates returns non-closed POs for the vendor, plus the PO named
	// by the hint (if any) regardless of vendor. This is the candidate set
	// the matching engine scores.
	FindCandidates(ctx context.Context, vendorID uuid.UUID, numberHint string) ([]*PurchaseOrder, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Candidates(ctx context.Context, vendorID uuid.UUID, numberHint string) ([]*PurchaseOrder, error) {
	return s.repo.FindCandidates(ctx, vendorID, numberHint)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) CreateBatch(ctx context.Context, orders []*PurchaseOrder) error {
	for _, order := range orders {
		if order.Status == "" {
			order.Status = StatusOpen
		}

		if err := s.repo.CreatePurchaseOrder(ctx, order); err != nil {
			return err
		}
	}

	return nil
}
