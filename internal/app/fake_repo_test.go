package app

import (
	"context"
	"sort"
	"time"

	"github.com/slotmarket/quota-api/internal/domain"
)

// fakeRepo is an in-memory ReservationRepository. Transactions are a
// pass-through: unit tests exercise the decision logic, the real isolation
// guarantees are covered by the postgres integration tests.
type fakeRepo struct {
	quotas   map[string]domain.Quota
	coverage map[string][]string // variantID -> quotaIDs
	variants map[string]bool
	holds    map[string]domain.Hold
	orders   map[string]domain.Order

	// lockCalls records each LockQuotasForVariants invocation.
	lockCalls [][]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		quotas:   make(map[string]domain.Quota),
		coverage: make(map[string][]string),
		variants: make(map[string]bool),
		holds:    make(map[string]domain.Hold),
		orders:   make(map[string]domain.Order),
	}
}

func (f *fakeRepo) addQuota(q domain.Quota, variantIDs ...string) {
	f.quotas[q.ID] = q
	for _, vid := range variantIDs {
		f.variants[vid] = true
		f.coverage[vid] = append(f.coverage[vid], q.ID)
	}
}

func (f *fakeRepo) addVariant(id string) {
	f.variants[id] = true
}

func (f *fakeRepo) addHold(h domain.Hold) {
	f.holds[h.ID] = h
}

func (f *fakeRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeRepo) GetQuota(_ context.Context, quotaID string) (domain.Quota, error) {
	q, ok := f.quotas[quotaID]
	if !ok {
		return domain.Quota{}, domain.ErrUnknownQuota
	}
	return q, nil
}

func (f *fakeRepo) QuotasForVariant(_ context.Context, variantID string) ([]domain.Quota, error) {
	ids := append([]string{}, f.coverage[variantID]...)
	sort.Strings(ids)
	quotas := make([]domain.Quota, 0, len(ids))
	for _, id := range ids {
		quotas = append(quotas, f.quotas[id])
	}
	return quotas, nil
}

func (f *fakeRepo) LockQuotasForVariants(_ context.Context, variantIDs []string) ([]domain.Quota, error) {
	f.lockCalls = append(f.lockCalls, append([]string{}, variantIDs...))
	seen := make(map[string]struct{})
	var ids []string
	for _, vid := range variantIDs {
		for _, qid := range f.coverage[vid] {
			if _, ok := seen[qid]; ok {
				continue
			}
			seen[qid] = struct{}{}
			ids = append(ids, qid)
		}
	}
	sort.Strings(ids)
	quotas := make([]domain.Quota, 0, len(ids))
	for _, id := range ids {
		quotas = append(quotas, f.quotas[id])
	}
	return quotas, nil
}

func (f *fakeRepo) VariantExists(_ context.Context, variantID string) (bool, error) {
	return f.variants[variantID], nil
}

func (f *fakeRepo) coveredBy(quotaID, variantID string) bool {
	for _, qid := range f.coverage[variantID] {
		if qid == quotaID {
			return true
		}
	}
	return false
}

func (f *fakeRepo) SumCommitted(_ context.Context, quotaID string, now time.Time, excludeHoldID string) (int, error) {
	total := 0
	for _, h := range f.holds {
		if h.ID == excludeHoldID || !f.coveredBy(quotaID, h.VariantID) {
			continue
		}
		switch h.State {
		case domain.HoldStatePaid:
			total += h.Quantity
		case domain.HoldStateReserved, domain.HoldStateConfirmed:
			if h.ExpiresAt != nil && h.ExpiresAt.After(now) {
				total += h.Quantity
			}
		}
	}
	return total, nil
}

func (f *fakeRepo) SumReclaimable(_ context.Context, quotaID string, now time.Time) (int, error) {
	total := 0
	for _, h := range f.holds {
		if !f.coveredBy(quotaID, h.VariantID) {
			continue
		}
		if h.State != domain.HoldStateReserved && h.State != domain.HoldStateConfirmed {
			continue
		}
		if h.ExpiresAt != nil && !h.ExpiresAt.After(now) {
			total += h.Quantity
		}
	}
	return total, nil
}

func (f *fakeRepo) GetHoldForUpdate(_ context.Context, holdID string) (domain.Hold, error) {
	h, ok := f.holds[holdID]
	if !ok {
		return domain.Hold{}, domain.ErrHoldNotFound
	}
	return h, nil
}

func (f *fakeRepo) CreateHold(_ context.Context, hold domain.Hold) error {
	f.holds[hold.ID] = hold
	return nil
}

func (f *fakeRepo) UpdateHold(_ context.Context, hold domain.Hold) error {
	if _, ok := f.holds[hold.ID]; !ok {
		return domain.ErrHoldNotFound
	}
	f.holds[hold.ID] = hold
	return nil
}

func (f *fakeRepo) GetOrderForUpdate(_ context.Context, orderID string) (domain.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeRepo) CreateOrder(_ context.Context, order domain.Order) error {
	f.orders[order.ID] = order
	return nil
}

func (f *fakeRepo) UpdateOrder(_ context.Context, order domain.Order) error {
	if _, ok := f.orders[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeRepo) HoldsByOrderForUpdate(_ context.Context, orderID string) ([]domain.Hold, error) {
	var holds []domain.Hold
	for _, h := range f.holds {
		if h.OrderID == orderID {
			holds = append(holds, h)
		}
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].ID < holds[j].ID })
	return holds, nil
}

func (f *fakeRepo) DeleteExpiredCartHolds(_ context.Context, before time.Time) (int64, error) {
	var deleted int64
	for id, h := range f.holds {
		if h.Kind != domain.HoldKindCart || h.State != domain.HoldStateReserved {
			continue
		}
		if h.ExpiresAt != nil && h.ExpiresAt.Before(before) {
			delete(f.holds, id)
			deleted++
		}
	}
	return deleted, nil
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
