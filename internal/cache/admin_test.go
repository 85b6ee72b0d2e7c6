package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotmarket/quota-api/internal/app"
	"github.com/slotmarket/quota-api/internal/domain"
)

type fakeAdminSource struct {
	bindErr error
	binds   int
}

func (f *fakeAdminSource) CreateQuota(_ context.Context, in app.CreateQuotaInput) (domain.Quota, error) {
	return domain.Quota{}, nil
}

func (f *fakeAdminSource) ListQuotas(_ context.Context) ([]domain.Quota, error) {
	return nil, nil
}

func (f *fakeAdminSource) CreateVariant(_ context.Context, name string) (domain.Variant, error) {
	return domain.Variant{}, nil
}

func (f *fakeAdminSource) ListVariants(_ context.Context) ([]domain.Variant, error) {
	return nil, nil
}

func (f *fakeAdminSource) BindVariant(_ context.Context, quotaID, variantID string) error {
	f.binds++
	return f.bindErr
}

func (f *fakeAdminSource) VariantsForQuota(_ context.Context, quotaID string) ([]domain.Variant, error) {
	return nil, nil
}

func TestInvalidatingAdmin_BindDropsCachedEntry(t *testing.T) {
	t.Parallel()

	source := &countingSource{avail: domain.Availability{Free: 5}}
	store := newMemStore()
	c := NewAvailabilityCache(source, store)
	admin := NewInvalidatingAdmin(&fakeAdminSource{}, c)

	ctx := context.Background()
	_, err := c.VariantAvailability(ctx, "variant-1", time.Time{})
	require.NoError(t, err)

	// Binding the variant to another quota changes its coverage; the cached
	// answer must not outlive that.
	require.NoError(t, admin.BindVariant(ctx, "quota-2", "variant-1"))

	_, err = c.VariantAvailability(ctx, "variant-1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, source.callCount(), "bind must invalidate the cached entry")
}

func TestInvalidatingAdmin_FailedBindKeepsCache(t *testing.T) {
	t.Parallel()

	source := &countingSource{avail: domain.Availability{Free: 5}}
	store := newMemStore()
	c := NewAvailabilityCache(source, store)
	admin := NewInvalidatingAdmin(&fakeAdminSource{bindErr: domain.ErrAlreadyBound}, c)

	ctx := context.Background()
	_, err := c.VariantAvailability(ctx, "variant-1", time.Time{})
	require.NoError(t, err)

	err = admin.BindVariant(ctx, "quota-2", "variant-1")
	assert.True(t, errors.Is(err, domain.ErrAlreadyBound))

	_, err = c.VariantAvailability(ctx, "variant-1", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, source.callCount(), "failed bind must leave the cache alone")
}
