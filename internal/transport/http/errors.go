package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slotmarket/quota-api/internal/domain"
)

const (
	codeMethodNotAllowed     = "method_not_allowed"
	codeNotFound             = "not_found"
	codeInvalidRequestBody   = "invalid_request_body"
	codeInvalidID            = "invalid_id"
	codeInvalidQuantity      = "invalid_quantity"
	codeInvalidTTL           = "invalid_ttl"
	codeInvalidTimestamp     = "invalid_timestamp"
	codeInvalidSize          = "invalid_size"
	codeOwnerTokenRequired   = "owner_token_required"
	codeQuotaExceeded        = "quota_exceeded"
	codeConcurrencyConflict  = "concurrency_conflict"
	codeInvalidState         = "invalid_state_transition"
	codeUnknownVariant       = "unknown_variant"
	codeUnknownQuota         = "unknown_quota"
	codeHoldNotFound         = "hold_not_found"
	codeOrderNotFound        = "order_not_found"
	codeQuotaNameRequired    = "quota_name_required"
	codeVariantNameRequired  = "variant_name_required"
	codeAlreadyBound         = "variant_already_bound"
	codeForbidden            = "forbidden"
	codeTooManyRequests      = "too_many_requests"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	// Retryable marks soft failures the caller should repeat with a fresh
	// availability read.
	Retryable bool `json:"retryable,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeErrorRetryable(w, status, code, msg, false)
}

func writeErrorRetryable(w http.ResponseWriter, status int, code, msg string, retryable bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error:     msg,
		Code:      code,
		Retryable: retryable,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps engine errors onto the HTTP surface. QuotaExceeded
// is the expected sold-out outcome, not a server fault; ConcurrencyConflict
// is the one retryable code.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		writeError(w, http.StatusConflict, codeQuotaExceeded, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		writeErrorRetryable(w, http.StatusConflict, codeConcurrencyConflict, err.Error(), true)
	case errors.Is(err, domain.ErrInvalidStateTransition):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidState, err.Error())
	case errors.Is(err, domain.ErrUnknownVariant):
		writeError(w, http.StatusNotFound, codeUnknownVariant, err.Error())
	case errors.Is(err, domain.ErrUnknownQuota):
		writeError(w, http.StatusNotFound, codeUnknownQuota, err.Error())
	case errors.Is(err, domain.ErrHoldNotFound):
		writeError(w, http.StatusNotFound, codeHoldNotFound, err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeOrderNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case errors.Is(err, domain.ErrInvalidTTL):
		writeError(w, http.StatusBadRequest, codeInvalidTTL, err.Error())
	case errors.Is(err, domain.ErrOwnerTokenRequired):
		writeError(w, http.StatusBadRequest, codeOwnerTokenRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrQuotaNameRequired):
		writeError(w, http.StatusBadRequest, codeQuotaNameRequired, err.Error())
	case errors.Is(err, domain.ErrVariantNameRequired):
		writeError(w, http.StatusBadRequest, codeVariantNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidSize):
		writeError(w, http.StatusBadRequest, codeInvalidSize, err.Error())
	case errors.Is(err, domain.ErrAlreadyBound):
		writeError(w, http.StatusConflict, codeAlreadyBound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
