package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/slotmarket/quota-api/internal/domain"
)

// OrderMutator covers the order-level coordinator operations.
type OrderMutator interface {
	MarkPaid(ctx context.Context, orderID string) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (domain.Order, error)
}

// HandleOrderActions routes POST /orders/{id}/{pay|cancel}.
func HandleOrderActions(svc OrderMutator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 3 || parts[0] != "orders" || parts[1] == "" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		orderID := parts[1]

		var (
			order domain.Order
			err   error
		)
		switch parts[2] {
		case "pay":
			order, err = svc.MarkPaid(r.Context(), orderID)
		case "cancel":
			order, err = svc.CancelOrder(r.Context(), orderID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(orderResponseFrom(order))
	}
}

type orderResponse struct {
	ID         string     `json:"id"`
	OwnerToken string     `json:"owner_token"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func orderResponseFrom(o domain.Order) orderResponse {
	return orderResponse{
		ID:         o.ID,
		OwnerToken: o.OwnerToken,
		PaidAt:     o.PaidAt,
		CreatedAt:  o.CreatedAt,
	}
}
