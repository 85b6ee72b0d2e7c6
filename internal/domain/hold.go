package domain

import "time"

type HoldState string

const (
	HoldStateReserved  HoldState = "reserved"
	HoldStateConfirmed HoldState = "confirmed"
	HoldStatePaid      HoldState = "paid"
	HoldStateCanceled  HoldState = "canceled"
	// HoldStateExpired is derived, never stored: a reserved or confirmed
	// hold whose ExpiresAt has passed. See EffectiveState.
	HoldStateExpired HoldState = "expired"
)

type HoldKind string

const (
	HoldKindCart  HoldKind = "cart"
	HoldKindOrder HoldKind = "order"
)

// Hold is a claim against the quotas covering a variant for a limited time.
// Cart holds carry a short TTL; confirming turns them into order holds with
// the payment-term TTL, and payment clears ExpiresAt entirely.
type Hold struct {
	ID         string
	VariantID  string
	OwnerToken string
	Quantity   int
	State      HoldState
	Kind       HoldKind
	OrderID    string
	ExpiresAt  *time.Time
	CreatedAt  time.Time
}

// EffectiveState resolves lazy expiry: holds are never flipped to expired by
// a background process, the comparison happens at read time.
func (h Hold) EffectiveState(now time.Time) HoldState {
	if (h.State == HoldStateReserved || h.State == HoldStateConfirmed) &&
		h.ExpiresAt != nil && !h.ExpiresAt.After(now) {
		return HoldStateExpired
	}
	return h.State
}

// Expired reports whether the hold's TTL has lapsed without it reaching a
// terminal state.
func (h Hold) Expired(now time.Time) bool {
	return h.EffectiveState(now) == HoldStateExpired
}
