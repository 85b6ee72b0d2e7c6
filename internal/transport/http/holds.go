package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/slotmarket/quota-api/internal/app"
	"github.com/slotmarket/quota-api/internal/domain"
)

// Reserver covers the hold-mutating operations of the coordinator.
type Reserver interface {
	Reserve(ctx context.Context, in app.ReserveInput) (domain.Hold, error)
	Extend(ctx context.Context, holdID string, ttl time.Duration) (domain.Hold, error)
	Confirm(ctx context.Context, holdID string) (domain.Order, domain.Hold, error)
	Cancel(ctx context.Context, holdID string) (domain.Hold, error)
}

// HandleCreateHold returns the handler for POST /holds.
func HandleCreateHold(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createHoldRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		owner := strings.TrimSpace(r.Header.Get(ownerTokenHeader))
		if owner == "" {
			owner = req.OwnerToken
		}

		hold, err := svc.Reserve(r.Context(), app.ReserveInput{
			VariantID:  req.VariantID,
			Quantity:   req.Quantity,
			OwnerToken: owner,
			TTL:        time.Duration(req.TTLSeconds) * time.Second,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(holdResponseFrom(hold))
	}
}

// HandleHoldActions routes POST /holds/{id}/{extend|confirm|cancel}.
func HandleHoldActions(svc Reserver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		holdID, action, ok := parseHoldActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch action {
		case "extend":
			handleExtendHold(w, r, svc, holdID)
		case "confirm":
			handleConfirmHold(w, r, svc, holdID)
		case "cancel":
			handleCancelHold(w, r, svc, holdID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleExtendHold(w http.ResponseWriter, r *http.Request, svc Reserver, holdID string) {
	var req extendHoldRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	hold, err := svc.Extend(r.Context(), holdID, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(holdResponseFrom(hold))
}

func handleConfirmHold(w http.ResponseWriter, r *http.Request, svc Reserver, holdID string) {
	order, hold, err := svc.Confirm(r.Context(), holdID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := confirmHoldResponse{
		Order: orderResponseFrom(order),
		Hold:  holdResponseFrom(hold),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

func handleCancelHold(w http.ResponseWriter, r *http.Request, svc Reserver, holdID string) {
	hold, err := svc.Cancel(r.Context(), holdID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(holdResponseFrom(hold))
}

func parseHoldActionPath(path string) (holdID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "holds" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

type createHoldRequest struct {
	VariantID  string `json:"variant_id"`
	Quantity   int    `json:"quantity"`
	OwnerToken string `json:"owner_token"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type extendHoldRequest struct {
	TTLSeconds int `json:"ttl_seconds"`
}

type holdResponse struct {
	ID        string     `json:"id"`
	VariantID string     `json:"variant_id"`
	Quantity  int        `json:"quantity"`
	State     string     `json:"state"`
	Kind      string     `json:"kind"`
	OrderID   string     `json:"order_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func holdResponseFrom(h domain.Hold) holdResponse {
	return holdResponse{
		ID:        h.ID,
		VariantID: h.VariantID,
		Quantity:  h.Quantity,
		State:     string(h.State),
		Kind:      string(h.Kind),
		OrderID:   h.OrderID,
		ExpiresAt: h.ExpiresAt,
		CreatedAt: h.CreatedAt,
	}
}

type confirmHoldResponse struct {
	Order orderResponse `json:"order"`
	Hold  holdResponse  `json:"hold"`
}
