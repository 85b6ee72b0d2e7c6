package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slotmarket/quota-api/internal/domain"
)

type fakeOrderMutator struct {
	paid     domain.Order
	paidErr  error
	canceled domain.Order
}

func (f *fakeOrderMutator) MarkPaid(_ context.Context, orderID string) (domain.Order, error) {
	if f.paidErr != nil {
		return domain.Order{}, f.paidErr
	}
	return f.paid, nil
}

func (f *fakeOrderMutator) CancelOrder(_ context.Context, orderID string) (domain.Order, error) {
	return f.canceled, nil
}

func TestHandleOrderActions(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pay", func(t *testing.T) {
		svc := &fakeOrderMutator{paid: domain.Order{ID: "order-1", OwnerToken: "x", PaidAt: &now}}

		req := httptest.NewRequest(http.MethodPost, "/orders/order-1/pay", nil)
		rec := httptest.NewRecorder()

		HandleOrderActions(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		var resp orderResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.PaidAt == nil || !resp.PaidAt.Equal(now) {
			t.Fatalf("expected paid_at %v, got %+v", now, resp)
		}
	})

	t.Run("pay after hold re-validation fails maps to 409", func(t *testing.T) {
		svc := &fakeOrderMutator{paidErr: domain.ErrQuotaExceeded}

		req := httptest.NewRequest(http.MethodPost, "/orders/order-1/pay", nil)
		rec := httptest.NewRecorder()

		HandleOrderActions(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("pay unknown order", func(t *testing.T) {
		svc := &fakeOrderMutator{paidErr: domain.ErrOrderNotFound}

		req := httptest.NewRequest(http.MethodPost, "/orders/missing/pay", nil)
		rec := httptest.NewRecorder()

		HandleOrderActions(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("cancel", func(t *testing.T) {
		svc := &fakeOrderMutator{canceled: domain.Order{ID: "order-1"}}

		req := httptest.NewRequest(http.MethodPost, "/orders/order-1/cancel", nil)
		rec := httptest.NewRecorder()

		HandleOrderActions(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders/order-1/refund", nil)
		rec := httptest.NewRecorder()

		HandleOrderActions(&fakeOrderMutator{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/order-1/pay", nil)
		rec := httptest.NewRecorder()

		HandleOrderActions(&fakeOrderMutator{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})
}
