package domain

import "time"

// Order aggregates the confirmed holds of one owner. PaidAt is set by
// MarkPaid; payment metadata itself lives outside the engine.
type Order struct {
	ID         string
	OwnerToken string
	PaidAt     *time.Time
	CreatedAt  time.Time
}

// Paid reports whether the order has been marked paid.
func (o Order) Paid() bool {
	return o.PaidAt != nil
}
