package domain

// Availability is the read-side answer for one quota or one variant at a
// point in time. Free is meaningless when Unlimited is set. Reclaimable is
// capacity held by expired-but-not-deleted holds: excluded from Free already,
// recoverable only in the sense that no live claim backs it.
type Availability struct {
	Free        int
	Unlimited   bool
	Reclaimable int
}

// Admits reports whether a reservation of qty units fits into Free.
func (a Availability) Admits(qty int) bool {
	return a.Unlimited || a.Free >= qty
}
