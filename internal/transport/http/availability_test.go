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

type fakeAvailabilityChecker struct {
	avail     domain.Availability
	err       error
	variantID string
	at        time.Time
}

func (f *fakeAvailabilityChecker) VariantAvailability(_ context.Context, variantID string, at time.Time) (domain.Availability, error) {
	f.variantID = variantID
	f.at = at
	if f.err != nil {
		return domain.Availability{}, f.err
	}
	return f.avail, nil
}

func TestHandleCheckAvailability(t *testing.T) {
	t.Parallel()

	t.Run("finite quota", func(t *testing.T) {
		svc := &fakeAvailabilityChecker{avail: domain.Availability{Free: 3, Reclaimable: 2}}

		req := httptest.NewRequest(http.MethodGet, "/availability?variant_id=variant-1", nil)
		rec := httptest.NewRecorder()

		HandleCheckAvailability(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		if svc.variantID != "variant-1" {
			t.Fatalf("expected variant-1, got %q", svc.variantID)
		}
		if !svc.at.IsZero() {
			t.Fatalf("expected zero at, got %v", svc.at)
		}

		var resp availabilityResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Free == nil || *resp.Free != 3 || resp.Reclaimable != 2 || resp.Unlimited {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("unlimited quota omits free", func(t *testing.T) {
		svc := &fakeAvailabilityChecker{avail: domain.Availability{Unlimited: true}}

		req := httptest.NewRequest(http.MethodGet, "/availability?variant_id=variant-1", nil)
		rec := httptest.NewRecorder()

		HandleCheckAvailability(svc).ServeHTTP(rec, req)

		var resp availabilityResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !resp.Unlimited || resp.Free != nil {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	t.Run("quantity answers admits", func(t *testing.T) {
		svc := &fakeAvailabilityChecker{avail: domain.Availability{Free: 2}}

		req := httptest.NewRequest(http.MethodGet, "/availability?variant_id=variant-1&quantity=3", nil)
		rec := httptest.NewRecorder()

		HandleCheckAvailability(svc).ServeHTTP(rec, req)

		var resp availabilityResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Admits == nil || *resp.Admits {
			t.Fatalf("expected admits=false, got %+v", resp)
		}
	})

	t.Run("explicit at is forwarded", func(t *testing.T) {
		svc := &fakeAvailabilityChecker{}

		req := httptest.NewRequest(http.MethodGet, "/availability?variant_id=variant-1&at=2025-06-01T12:00:00Z", nil)
		rec := httptest.NewRecorder()

		HandleCheckAvailability(svc).ServeHTTP(rec, req)

		want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		if !svc.at.Equal(want) {
			t.Fatalf("expected at %v, got %v", want, svc.at)
		}
	})

	t.Run("missing variant_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/availability", nil)
		rec := httptest.NewRecorder()

		HandleCheckAvailability(&fakeAvailabilityChecker{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("bad timestamp", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/availability?variant_id=v&at=yesterday", nil)
		rec := httptest.NewRecorder()

		HandleCheckAvailability(&fakeAvailabilityChecker{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown variant", func(t *testing.T) {
		svc := &fakeAvailabilityChecker{err: domain.ErrUnknownVariant}

		req := httptest.NewRequest(http.MethodGet, "/availability?variant_id=missing", nil)
		rec := httptest.NewRecorder()

		HandleCheckAvailability(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
