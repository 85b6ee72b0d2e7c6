package cache

import (
	"context"

	"github.com/slotmarket/quota-api/internal/app"
	"github.com/slotmarket/quota-api/internal/domain"
)

// AdminSource is the admin surface the invalidating wrapper delegates to,
// typically app.AdminService.
type AdminSource interface {
	CreateQuota(ctx context.Context, in app.CreateQuotaInput) (domain.Quota, error)
	ListQuotas(ctx context.Context) ([]domain.Quota, error)
	CreateVariant(ctx context.Context, name string) (domain.Variant, error)
	ListVariants(ctx context.Context) ([]domain.Variant, error)
	BindVariant(ctx context.Context, quotaID, variantID string) error
	VariantsForQuota(ctx context.Context, quotaID string) ([]domain.Variant, error)
}

// InvalidatingAdmin passes admin calls through and drops the cached
// availability entry when a bind changes a variant's quota coverage. The
// other admin operations touch no variant a reader could have cached.
type InvalidatingAdmin struct {
	AdminSource
	cache *AvailabilityCache
}

func NewInvalidatingAdmin(source AdminSource, c *AvailabilityCache) *InvalidatingAdmin {
	return &InvalidatingAdmin{
		AdminSource: source,
		cache:       c,
	}
}

func (a *InvalidatingAdmin) BindVariant(ctx context.Context, quotaID, variantID string) error {
	if err := a.AdminSource.BindVariant(ctx, quotaID, variantID); err != nil {
		return err
	}
	a.cache.Invalidate(ctx, variantID)
	return nil
}
