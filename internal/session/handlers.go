package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/catalog"
	"github.com/botika-labs/pos-api/internal/common"
)

// ProductSource resolves live product snapshots when lines are added.
type ProductSource interface {
	Snapshot(ctx context.Context, productID uuid.UUID) (cart.Product, error)
}

// Handler wires session and cart operations to HTTP.
type Handler struct {
	Registry *Registry
	Products ProductSource
	Validate *validator.Validate
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Variant   string `json:"variant" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// Open handles POST /sessions.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	common.JSONData(w, http.StatusCreated, h.Registry.Open())
}

// Get handles GET /sessions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	info, err := h.Registry.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, info)
}

// Close handles DELETE /sessions/{id}.
func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.Registry.Close(id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddItem handles POST /sessions/{id}/items.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	variant, err := cart.ParseVariant(req.Variant)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown packaging variant", nil)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}

	product, err := h.Products.Snapshot(r.Context(), productID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	err = h.Registry.WithCart(r.Context(), id, func(ct *cart.Cart) error {
		return ct.AddItem(product, variant, req.Quantity)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondWithSession(w, id)
}

// UpdateItem handles PUT /sessions/{id}/items/{productID}/{variant}.
// Quantity zero removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, productID, variant, ok := h.lineKey(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	err := h.Registry.WithCart(r.Context(), id, func(ct *cart.Cart) error {
		return ct.UpdateQuantity(productID, variant, req.Quantity)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondWithSession(w, id)
}

// RemoveItem handles DELETE /sessions/{id}/items/{productID}/{variant}.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, productID, variant, ok := h.lineKey(w, r)
	if !ok {
		return
	}
	err := h.Registry.WithCart(r.Context(), id, func(ct *cart.Cart) error {
		ct.RemoveItem(productID, variant)
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondWithSession(w, id)
}

// ClearItems handles DELETE /sessions/{id}/items.
func (h *Handler) ClearItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	err := h.Registry.WithCart(r.Context(), id, func(ct *cart.Cart) error {
		ct.Clear()
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondWithSession(w, id)
}

func (h *Handler) respondWithSession(w http.ResponseWriter, id uuid.UUID) {
	info, err := h.Registry.Get(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, info)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if h.Registry == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "session registry not configured", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid session id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) lineKey(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, cart.Variant, bool) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, "", false
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return uuid.Nil, uuid.Nil, "", false
	}
	variant, err := cart.ParseVariant(chi.URLParam(r, "variant"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown packaging variant", nil)
		return uuid.Nil, uuid.Nil, "", false
	}
	return id, productID, variant, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, cart.ErrOutOfStock):
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", "product variant cannot be fulfilled from stock", nil)
	case errors.Is(err, cart.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "requested quantity exceeds available stock", nil)
	case errors.Is(err, cart.ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "quantity must be positive", nil)
	default:
		common.RenderError(w, err)
	}
}
