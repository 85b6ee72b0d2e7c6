package domain

import "time"

// Variant is a sellable item variant. Capacity constraints come from the
// quotas that cover it; a variant covered by no quota is unconstrained.
type Variant struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
