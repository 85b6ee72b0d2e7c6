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

type AdminAPI interface {
	CreateQuota(ctx context.Context, in app.CreateQuotaInput) (domain.Quota, error)
	ListQuotas(ctx context.Context) ([]domain.Quota, error)
	CreateVariant(ctx context.Context, name string) (domain.Variant, error)
	ListVariants(ctx context.Context) ([]domain.Variant, error)
	BindVariant(ctx context.Context, quotaID, variantID string) error
	VariantsForQuota(ctx context.Context, quotaID string) ([]domain.Variant, error)
}

// HandleAdminQuotas serves POST and GET /admin/quotas.
func HandleAdminQuotas(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req createQuotaRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			in := app.CreateQuotaInput{
				Name:      req.Name,
				Unlimited: req.Size == nil,
				Subevent:  req.Subevent,
			}
			if req.Size != nil {
				in.Size = *req.Size
			}

			quota, err := svc.CreateQuota(r.Context(), in)
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(quotaResponseFrom(quota))
		case http.MethodGet:
			quotas, err := svc.ListQuotas(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}

			resp := make([]quotaResponse, 0, len(quotas))
			for _, q := range quotas {
				resp = append(resp, quotaResponseFrom(q))
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(resp)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminQuotaVariants serves POST and GET /admin/quotas/{id}/variants.
func HandleAdminQuotaVariants(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "admin" || parts[1] != "quotas" || parts[2] == "" || parts[3] != "variants" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		quotaID := parts[2]

		switch r.Method {
		case http.MethodPost:
			var req bindVariantRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			if err := svc.BindVariant(r.Context(), quotaID, req.VariantID); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			variants, err := svc.VariantsForQuota(r.Context(), quotaID)
			if err != nil {
				writeDomainError(w, err)
				return
			}

			resp := make([]variantResponse, 0, len(variants))
			for _, v := range variants {
				resp = append(resp, variantResponseFrom(v))
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(resp)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminVariants serves POST and GET /admin/variants.
func HandleAdminVariants(svc AdminAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req createVariantRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			variant, err := svc.CreateVariant(r.Context(), req.Name)
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(variantResponseFrom(variant))
		case http.MethodGet:
			variants, err := svc.ListVariants(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}

			resp := make([]variantResponse, 0, len(variants))
			for _, v := range variants {
				resp = append(resp, variantResponseFrom(v))
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_ = json.NewEncoder(w).Encode(resp)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type createQuotaRequest struct {
	Name string `json:"name"`
	// Size null or absent means unlimited.
	Size     *int   `json:"size"`
	Subevent string `json:"subevent"`
}

type createVariantRequest struct {
	Name string `json:"name"`
}

type bindVariantRequest struct {
	VariantID string `json:"variant_id"`
}

type quotaResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      *int      `json:"size"`
	Subevent  string    `json:"subevent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func quotaResponseFrom(q domain.Quota) quotaResponse {
	resp := quotaResponse{
		ID:        q.ID,
		Name:      q.Name,
		Subevent:  q.Subevent,
		CreatedAt: q.CreatedAt,
	}
	if !q.Unlimited {
		size := q.Size
		resp.Size = &size
	}
	return resp
}

type variantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func variantResponseFrom(v domain.Variant) variantResponse {
	return variantResponse{
		ID:        v.ID,
		Name:      v.Name,
		CreatedAt: v.CreatedAt,
	}
}
