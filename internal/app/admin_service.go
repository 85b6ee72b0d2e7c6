package app

import (
	"context"

	"github.com/slotmarket/quota-api/internal/clock"
	"github.com/slotmarket/quota-api/internal/domain"
)

type AdminRepository interface {
	CreateQuota(ctx context.Context, quota domain.Quota) error
	ListQuotas(ctx context.Context) ([]domain.Quota, error)
	CreateVariant(ctx context.Context, variant domain.Variant) error
	ListVariants(ctx context.Context) ([]domain.Variant, error)
	BindVariant(ctx context.Context, quotaID, variantID string) error
	VariantsForQuota(ctx context.Context, quotaID string) ([]domain.Variant, error)
}

// AdminService manages quotas and variants. It never touches holds; capacity
// bookkeeping is the reservation path's job.
type AdminService struct {
	repo  AdminRepository
	clock clock.Clock
}

func NewAdminService(repo AdminRepository, clk clock.Clock) *AdminService {
	return &AdminService{
		repo:  repo,
		clock: clk,
	}
}

type CreateQuotaInput struct {
	Name string
	// Size is ignored when Unlimited is set.
	Size      int
	Unlimited bool
	Subevent  string
}

func (s *AdminService) CreateQuota(ctx context.Context, in CreateQuotaInput) (domain.Quota, error) {
	if in.Name == "" {
		return domain.Quota{}, domain.ErrQuotaNameRequired
	}
	if !in.Unlimited && in.Size < 0 {
		return domain.Quota{}, domain.ErrInvalidSize
	}

	quota := domain.Quota{
		ID:        newID(),
		Name:      in.Name,
		Size:      in.Size,
		Unlimited: in.Unlimited,
		Subevent:  in.Subevent,
		CreatedAt: s.clock.Now(),
	}
	if in.Unlimited {
		quota.Size = 0
	}

	if err := s.repo.CreateQuota(ctx, quota); err != nil {
		return domain.Quota{}, err
	}
	return quota, nil
}

func (s *AdminService) ListQuotas(ctx context.Context) ([]domain.Quota, error) {
	return s.repo.ListQuotas(ctx)
}

func (s *AdminService) CreateVariant(ctx context.Context, name string) (domain.Variant, error) {
	if name == "" {
		return domain.Variant{}, domain.ErrVariantNameRequired
	}

	variant := domain.Variant{
		ID:        newID(),
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateVariant(ctx, variant); err != nil {
		return domain.Variant{}, err
	}
	return variant, nil
}

func (s *AdminService) ListVariants(ctx context.Context) ([]domain.Variant, error) {
	return s.repo.ListVariants(ctx)
}

// BindVariant puts a variant under a quota's capacity. A variant under
// several quotas needs room in all of them for any reservation to succeed.
func (s *AdminService) BindVariant(ctx context.Context, quotaID, variantID string) error {
	if quotaID == "" || variantID == "" {
		return domain.ErrInvalidID
	}
	return s.repo.BindVariant(ctx, quotaID, variantID)
}

func (s *AdminService) VariantsForQuota(ctx context.Context, quotaID string) ([]domain.Variant, error) {
	if quotaID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.VariantsForQuota(ctx, quotaID)
}
