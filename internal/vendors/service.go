package vendor

import (
	"context"
	"time"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=vendor
type Repository interface {
	// GetSnapshot aggregates the vendor's payment history, activity metadata,
	// fraud flags and price baselines as of the given time. A vendor with no
	// record yields the unknown sentinel, not an error.
	GetSnapshot(ctx context.Context, id uuid.UUID, asOf time.Time) (Snapshot, error)
	// GetCategoryBaselines returns cross-vendor price distributions per item
	// category, used as the fallback when one vendor's history is sparse.
	GetCategoryBaselines(ctx context.Context, asOf time.Time) (map[string]Baseline, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Snapshot(ctx context.Context, id uuid.UUID, asOf time.Time) (Snapshot, error) {
	return s.repo.GetSnapshot(ctx, id, asOf)
}

func (s *Service) CategoryBaselines(ctx context.Context, asOf time.Time) (map[string]Baseline, error) {
	return s.repo.GetCategoryBaselines(ctx, asOf)
}
