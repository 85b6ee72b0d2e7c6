package domain

import "time"

// Quota is a named capacity pool covering one or more sellable variants.
// A quota with Unlimited set never constrains reservations; Size is only
// meaningful when Unlimited is false. Subevent optionally scopes the pool
// to a single occurrence.
type Quota struct {
	ID        string
	Name      string
	Size      int
	Unlimited bool
	Subevent  string
	CreatedAt time.Time
}
