package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/slotmarket/quota-api/internal/domain"
)

// AvailabilityChecker is the read-side lookup; the cached wrapper and the
// plain service both satisfy it.
type AvailabilityChecker interface {
	VariantAvailability(ctx context.Context, variantID string, at time.Time) (domain.Availability, error)
}

// HandleCheckAvailability serves non-binding availability reads. The answer
// may lag writes slightly; callers needing a guarantee go through Reserve.
func HandleCheckAvailability(svc AvailabilityChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		variantID := r.URL.Query().Get("variant_id")
		if variantID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "variant_id is required")
			return
		}

		var at time.Time
		if raw := r.URL.Query().Get("at"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidTimestamp, "at must be RFC 3339")
				return
			}
			at = parsed
		}

		quantity := 0
		if raw := r.URL.Query().Get("quantity"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				writeError(w, http.StatusBadRequest, codeInvalidQuantity, "quantity must be a positive integer")
				return
			}
			quantity = parsed
		}

		avail, err := svc.VariantAvailability(r.Context(), variantID, at)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := availabilityResponse{
			Unlimited:   avail.Unlimited,
			Reclaimable: avail.Reclaimable,
		}
		if !avail.Unlimited {
			resp.Free = &avail.Free
		}
		if quantity > 0 {
			admits := avail.Admits(quantity)
			resp.Admits = &admits
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type availabilityResponse struct {
	// Free is omitted for unlimited quotas.
	Free        *int  `json:"free,omitempty"`
	Unlimited   bool  `json:"unlimited"`
	Reclaimable int   `json:"reclaimable"`
	Admits      *bool `json:"admits,omitempty"`
}
