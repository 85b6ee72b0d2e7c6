package app

import (
	"context"
	"time"

	"github.com/slotmarket/quota-api/internal/clock"
	"github.com/slotmarket/quota-api/internal/domain"
)

// AvailabilityReader is the read-side storage contract. All sums are over
// stored holds; expiry is resolved by comparing expires_at against the
// supplied instant, never by stored state.
type AvailabilityReader interface {
	GetQuota(ctx context.Context, quotaID string) (domain.Quota, error)
	QuotasForVariant(ctx context.Context, variantID string) ([]domain.Quota, error)
	VariantExists(ctx context.Context, variantID string) (bool, error)
	// SumCommitted returns the quantity counting against the quota at now:
	// paid holds plus reserved/confirmed holds with expires_at > now.
	// excludeHoldID, when non-empty, leaves that hold out of the sum.
	SumCommitted(ctx context.Context, quotaID string, now time.Time, excludeHoldID string) (int, error)
	// SumReclaimable returns the quantity of reserved/confirmed holds whose
	// expires_at is at or before now: still on the books, no longer counted.
	SumReclaimable(ctx context.Context, quotaID string, now time.Time) (int, error)
}

// AvailabilityService computes free and reclaimable capacity. It performs no
// writes and may run outside a transaction; display callers accept slightly
// stale answers. Binding decisions are made only by ReservationService under
// locks.
type AvailabilityService struct {
	repo  AvailabilityReader
	clock clock.Clock
}

func NewAvailabilityService(repo AvailabilityReader, clk clock.Clock) *AvailabilityService {
	return &AvailabilityService{
		repo:  repo,
		clock: clk,
	}
}

// QuotaAvailability reports one quota's capacity at the given instant. A zero
// at means "now".
func (s *AvailabilityService) QuotaAvailability(ctx context.Context, quotaID string, at time.Time) (domain.Availability, error) {
	if at.IsZero() {
		at = s.clock.Now()
	}

	quota, err := s.repo.GetQuota(ctx, quotaID)
	if err != nil {
		return domain.Availability{}, err
	}
	return quotaAvailability(ctx, s.repo, quota, at, "")
}

// VariantAvailability combines all quotas covering a variant: every quota
// must admit a reservation, so free is the minimum across them. A variant
// covered by no quota (or only unlimited ones) is unbounded.
func (s *AvailabilityService) VariantAvailability(ctx context.Context, variantID string, at time.Time) (domain.Availability, error) {
	if at.IsZero() {
		at = s.clock.Now()
	}

	exists, err := s.repo.VariantExists(ctx, variantID)
	if err != nil {
		return domain.Availability{}, err
	}
	if !exists {
		return domain.Availability{}, domain.ErrUnknownVariant
	}

	quotas, err := s.repo.QuotasForVariant(ctx, variantID)
	if err != nil {
		return domain.Availability{}, err
	}
	return combinedAvailability(ctx, s.repo, quotas, at, "")
}

func quotaAvailability(ctx context.Context, repo AvailabilityReader, quota domain.Quota, at time.Time, excludeHoldID string) (domain.Availability, error) {
	if quota.Unlimited {
		return domain.Availability{Unlimited: true}, nil
	}

	committed, err := repo.SumCommitted(ctx, quota.ID, at, excludeHoldID)
	if err != nil {
		return domain.Availability{}, err
	}
	reclaimable, err := repo.SumReclaimable(ctx, quota.ID, at)
	if err != nil {
		return domain.Availability{}, err
	}

	free := quota.Size - committed
	if free < 0 {
		free = 0
	}
	return domain.Availability{Free: free, Reclaimable: reclaimable}, nil
}

func combinedAvailability(ctx context.Context, repo AvailabilityReader, quotas []domain.Quota, at time.Time, excludeHoldID string) (domain.Availability, error) {
	bounded := false
	minFree := 0
	minObtainable := 0

	for _, quota := range quotas {
		avail, err := quotaAvailability(ctx, repo, quota, at, excludeHoldID)
		if err != nil {
			return domain.Availability{}, err
		}
		if avail.Unlimited {
			continue
		}
		obtainable := avail.Free + avail.Reclaimable
		if !bounded || avail.Free < minFree {
			minFree = avail.Free
		}
		if !bounded || obtainable < minObtainable {
			minObtainable = obtainable
		}
		bounded = true
	}

	if !bounded {
		return domain.Availability{Unlimited: true}, nil
	}

	reclaimable := minObtainable - minFree
	if reclaimable < 0 {
		reclaimable = 0
	}
	return domain.Availability{Free: minFree, Reclaimable: reclaimable}, nil
}
