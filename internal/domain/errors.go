package domain

import "errors"

var (
	// ErrQuotaExceeded is the expected "sold out" outcome: capacity was
	// genuinely unavailable at decision time. Callers may retry, offer an
	// alternative or a waiting list.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrConcurrencyConflict means the transaction lost against a competing
	// writer. Retryable: repeat the whole attempt with a fresh read.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrInvalidStateTransition signals a caller bug (confirming a canceled
	// hold, paying a paid order), never a capacity problem. Not retryable.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	ErrUnknownVariant     = errors.New("unknown variant")
	ErrUnknownQuota       = errors.New("unknown quota")
	ErrHoldNotFound       = errors.New("hold not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrOwnerTokenRequired = errors.New("owner token required")
	ErrInvalidTTL         = errors.New("invalid ttl")
	ErrInvalidID          = errors.New("invalid id")

	ErrQuotaNameRequired   = errors.New("quota name required")
	ErrVariantNameRequired = errors.New("variant name required")
	ErrInvalidSize         = errors.New("invalid size")
	ErrAlreadyBound        = errors.New("variant already bound to quota")
)
