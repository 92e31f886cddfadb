package sales

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/botika-labs/pos-api/internal/common"
)

// Handler wires the sales history service to HTTP.
type Handler struct {
	Svc *Service
}

// List handles GET /sales?from=&to=&page=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sales service not configured", nil)
		return
	}
	page, limit := common.ParsePagination(r, h.Svc.DefaultLimit, h.Svc.MaxLimit)
	params := ListParams{Page: page, Limit: limit}

	for _, bound := range []struct {
		key  string
		dest **time.Time
	}{
		{"from", &params.From},
		{"to", &params.To},
	} {
		raw := strings.TrimSpace(r.URL.Query().Get(bound.key))
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", bound.key+" must be YYYY-MM-DD", nil)
			return
		}
		if bound.key == "to" {
			t = t.AddDate(0, 0, 1)
		}
		*bound.dest = &t
	}

	sales, total, err := h.Svc.List(r.Context(), params)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list sales", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": sales,
		"meta": common.Pagination{Page: params.Page, PerPage: params.Limit, TotalItems: total},
	})
}

// Get handles GET /sales/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sales service not configured", nil)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
		return
	}
	sale, err := h.Svc.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sale not found", nil)
		return
	}
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, sale)
}

// Summary handles GET /sales/summary?date=YYYY-MM-DD.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "sales service not configured", nil)
		return
	}
	date, err := h.Svc.ParseDay(strings.TrimSpace(r.URL.Query().Get("date")), time.Now())
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "date must be YYYY-MM-DD", nil)
		return
	}
	summary, err := h.Svc.DaySummary(r.Context(), date)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, summary)
}
