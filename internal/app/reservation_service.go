package app

import (
	"context"
	"time"

	"github.com/slotmarket/quota-api/internal/clock"
	"github.com/slotmarket/quota-api/internal/domain"
)

// ReservationRepository is the write-path storage contract. Lock-taking
// methods must be called inside WithTx; LockQuotasForVariants returns quota
// rows in ascending id order and must take exclusive row locks in that order,
// which keeps concurrent multi-quota reservations deadlock-free.
type ReservationRepository interface {
	AvailabilityReader
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockQuotasForVariants(ctx context.Context, variantIDs []string) ([]domain.Quota, error)
	GetHoldForUpdate(ctx context.Context, holdID string) (domain.Hold, error)
	CreateHold(ctx context.Context, hold domain.Hold) error
	UpdateHold(ctx context.Context, hold domain.Hold) error
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order) error
	UpdateOrder(ctx context.Context, order domain.Order) error
	HoldsByOrderForUpdate(ctx context.Context, orderID string) ([]domain.Hold, error)
}

// ReservationService is the only write path for holds and orders. Every
// operation runs in a single transaction; expired holds are never touched
// here, they simply stop counting (see AvailabilityReader.SumCommitted) and
// their owners re-compete for capacity at confirm/extend time.
type ReservationService struct {
	repo        ReservationRepository
	clock       clock.Clock
	cartTTL     time.Duration
	paymentTerm time.Duration
}

const (
	defaultCartTTL     = 20 * time.Minute
	defaultPaymentTerm = 7 * 24 * time.Hour
)

func NewReservationService(repo ReservationRepository, clk clock.Clock, opts ...ReservationOption) *ReservationService {
	svc := &ReservationService{
		repo:        repo,
		clock:       clk,
		cartTTL:     defaultCartTTL,
		paymentTerm: defaultPaymentTerm,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type ReservationOption func(*ReservationService)

// WithCartTTL overrides the default TTL for new cart holds.
func WithCartTTL(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.cartTTL = d
		}
	}
}

// WithPaymentTerm overrides the TTL assigned to holds at confirm time.
func WithPaymentTerm(d time.Duration) ReservationOption {
	return func(s *ReservationService) {
		if d > 0 {
			s.paymentTerm = d
		}
	}
}

type ReserveInput struct {
	VariantID  string
	Quantity   int
	OwnerToken string
	// TTL for the cart hold; zero means the service default.
	TTL time.Duration
}

// Reserve grants a cart hold when every quota covering the variant has room
// for the quantity, or fails with ErrQuotaExceeded. Capacity behind expired
// holds needs no reclaim step: such holds are already absent from the
// committed sums.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (domain.Hold, error) {
	if in.Quantity <= 0 {
		return domain.Hold{}, domain.ErrInvalidQuantity
	}
	if in.OwnerToken == "" {
		return domain.Hold{}, domain.ErrOwnerTokenRequired
	}
	if in.TTL < 0 {
		return domain.Hold{}, domain.ErrInvalidTTL
	}
	ttl := in.TTL
	if ttl == 0 {
		ttl = s.cartTTL
	}

	var result domain.Hold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		exists, err := s.repo.VariantExists(txCtx, in.VariantID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrUnknownVariant
		}

		quotas, err := s.repo.LockQuotasForVariants(txCtx, []string{in.VariantID})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.checkCapacity(txCtx, quotas, in.Quantity, now, ""); err != nil {
			return err
		}

		expiresAt := now.Add(ttl)
		hold := domain.Hold{
			ID:         newID(),
			VariantID:  in.VariantID,
			OwnerToken: in.OwnerToken,
			Quantity:   in.Quantity,
			State:      domain.HoldStateReserved,
			Kind:       domain.HoldKindCart,
			ExpiresAt:  &expiresAt,
			CreatedAt:  now,
		}
		if err := s.repo.CreateHold(txCtx, hold); err != nil {
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return result, nil
}

// Extend pushes a reserved hold's deadline forward. The check treats the
// hold's own quantity as not yet committed, so a live hold always extends;
// an expired one re-competes against current availability and loses with
// ErrQuotaExceeded if someone else took the capacity in the interim.
func (s *ReservationService) Extend(ctx context.Context, holdID string, ttl time.Duration) (domain.Hold, error) {
	if ttl <= 0 {
		return domain.Hold{}, domain.ErrInvalidTTL
	}

	var result domain.Hold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.State != domain.HoldStateReserved {
			return domain.ErrInvalidStateTransition
		}

		quotas, err := s.repo.LockQuotasForVariants(txCtx, []string{hold.VariantID})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.checkCapacity(txCtx, quotas, hold.Quantity, now, hold.ID); err != nil {
			return err
		}

		expiresAt := now.Add(ttl)
		hold.ExpiresAt = &expiresAt
		if err := s.repo.UpdateHold(txCtx, hold); err != nil {
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return result, nil
}

// Confirm turns a reserved cart hold into an order hold with the payment
// term as its new deadline. A hold past its expiry is re-validated as a
// fresh reservation at this moment; commit order alone decides who wins a
// contested shortfall.
func (s *ReservationService) Confirm(ctx context.Context, holdID string) (domain.Order, domain.Hold, error) {
	var (
		order domain.Order
		hold  domain.Hold
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		h, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		if h.State != domain.HoldStateReserved {
			return domain.ErrInvalidStateTransition
		}

		// The quota locks are taken before reading the clock even for a
		// seemingly live hold: a concurrent reservation observing a later
		// instant may already treat this hold as expired, and only the lock
		// serializes the two capacity decisions.
		quotas, err := s.repo.LockQuotasForVariants(txCtx, []string{h.VariantID})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if h.Expired(now) {
			if err := s.checkCapacity(txCtx, quotas, h.Quantity, now, h.ID); err != nil {
				return err
			}
		}

		o := domain.Order{
			ID:         newID(),
			OwnerToken: h.OwnerToken,
			CreatedAt:  now,
		}
		if err := s.repo.CreateOrder(txCtx, o); err != nil {
			return err
		}

		expiresAt := now.Add(s.paymentTerm)
		h.State = domain.HoldStateConfirmed
		h.Kind = domain.HoldKindOrder
		h.OrderID = o.ID
		h.ExpiresAt = &expiresAt
		if err := s.repo.UpdateHold(txCtx, h); err != nil {
			return err
		}

		order = o
		hold = h
		return nil
	})
	if err != nil {
		return domain.Order{}, domain.Hold{}, err
	}
	return order, hold, nil
}

// MarkPaid makes the order's confirmed holds permanent: state paid, no
// expiry. Within the payment term this never fails for capacity. Holds whose
// term already lapsed are re-validated one by one; a shortfall surfaces as
// ErrQuotaExceeded and rolls the whole payment back.
func (s *ReservationService) MarkPaid(ctx context.Context, orderID string) (domain.Order, error) {
	var result domain.Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		if order.Paid() {
			return domain.ErrInvalidStateTransition
		}

		holds, err := s.repo.HoldsByOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}

		confirmed := make([]domain.Hold, 0, len(holds))
		for _, h := range holds {
			switch h.State {
			case domain.HoldStateConfirmed:
				confirmed = append(confirmed, h)
			case domain.HoldStateCanceled:
				// Canceled holds no longer participate in the order.
			default:
				return domain.ErrInvalidStateTransition
			}
		}
		if len(confirmed) == 0 {
			return domain.ErrInvalidStateTransition
		}

		// Locks first, clock second: whether a hold's term has lapsed is
		// decided only once no concurrent reservation can race the answer.
		if err := s.lockQuotasForHolds(txCtx, confirmed); err != nil {
			return err
		}
		now := s.clock.Now()

		for _, h := range confirmed {
			if h.Expired(now) {
				quotas, err := s.repo.QuotasForVariant(txCtx, h.VariantID)
				if err != nil {
					return err
				}
				if err := s.checkCapacity(txCtx, quotas, h.Quantity, now, h.ID); err != nil {
					return err
				}
			}
			h.State = domain.HoldStatePaid
			h.ExpiresAt = nil
			if err := s.repo.UpdateHold(txCtx, h); err != nil {
				return err
			}
		}

		order.PaidAt = &now
		if err := s.repo.UpdateOrder(txCtx, order); err != nil {
			return err
		}

		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// Cancel releases a hold unconditionally and immediately; the next
// availability read no longer counts it. Canceling twice is a no-op.
func (s *ReservationService) Cancel(ctx context.Context, holdID string) (domain.Hold, error) {
	var result domain.Hold

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		hold, err := s.repo.GetHoldForUpdate(txCtx, holdID)
		if err != nil {
			return err
		}
		if hold.State == domain.HoldStateCanceled {
			result = hold
			return nil
		}

		hold.State = domain.HoldStateCanceled
		hold.ExpiresAt = nil
		if err := s.repo.UpdateHold(txCtx, hold); err != nil {
			return err
		}

		result = hold
		return nil
	})
	if err != nil {
		return domain.Hold{}, err
	}
	return result, nil
}

// CancelOrder cancels every hold of the order, paid ones included.
func (s *ReservationService) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	var result domain.Order

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}

		holds, err := s.repo.HoldsByOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		for _, h := range holds {
			if h.State == domain.HoldStateCanceled {
				continue
			}
			h.State = domain.HoldStateCanceled
			h.ExpiresAt = nil
			if err := s.repo.UpdateHold(txCtx, h); err != nil {
				return err
			}
		}

		result = order
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// checkCapacity verifies that every bounded quota still admits qty units at
// now, with excludeHoldID's own quantity left out of the committed sums.
func (s *ReservationService) checkCapacity(ctx context.Context, quotas []domain.Quota, qty int, now time.Time, excludeHoldID string) error {
	for _, quota := range quotas {
		if quota.Unlimited {
			continue
		}
		committed, err := s.repo.SumCommitted(ctx, quota.ID, now, excludeHoldID)
		if err != nil {
			return err
		}
		if quota.Size-committed < qty {
			return domain.ErrQuotaExceeded
		}
	}
	return nil
}

// lockQuotasForHolds takes the quota row locks for every variant the holds
// touch, in one ascending-id pass.
func (s *ReservationService) lockQuotasForHolds(ctx context.Context, holds []domain.Hold) error {
	variantIDs := make([]string, 0, len(holds))
	seen := make(map[string]struct{}, len(holds))
	for _, h := range holds {
		if _, ok := seen[h.VariantID]; ok {
			continue
		}
		seen[h.VariantID] = struct{}{}
		variantIDs = append(variantIDs, h.VariantID)
	}
	if len(variantIDs) == 0 {
		return nil
	}
	_, err := s.repo.LockQuotasForVariants(ctx, variantIDs)
	return err
}
