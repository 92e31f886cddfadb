package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/botika-labs/pos-api/internal/cart"
	"github.com/botika-labs/pos-api/internal/common"
	"github.com/botika-labs/pos-api/internal/discount"
	"github.com/botika-labs/pos-api/internal/pricing"
	"github.com/botika-labs/pos-api/internal/session"
)

// Handler exposes quoting and checkout over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type discountRequest struct {
	Type       string `json:"type" validate:"required"`
	PercentBps int    `json:"percentBps" validate:"gte=0,lte=10000"`
	Amount     int64  `json:"amount" validate:"gte=0"`
	IDNumber   string `json:"idNumber"`
	HolderName string `json:"holderName"`
}

type paymentRequest struct {
	Method         string `json:"method" validate:"required"`
	AmountTendered int64  `json:"amountTendered" validate:"gte=0"`
}

type quoteRequest struct {
	Discount *discountRequest `json:"discount"`
	Payment  *paymentRequest  `json:"payment"`
}

type checkoutRequest struct {
	Discount *discountRequest `json:"discount"`
	Payment  paymentRequest   `json:"payment" validate:"required"`
}

func (h *Handler) policy(req *discountRequest) (discount.Policy, error) {
	if req == nil {
		return discount.None(), nil
	}
	typ, err := discount.ParseType(req.Type)
	if err != nil {
		return discount.Policy{}, err
	}
	return discount.Policy{
		Type:       typ,
		PercentBps: req.PercentBps,
		Amount:     pricing.Money(req.Amount),
		IDNumber:   req.IDNumber,
		HolderName: req.HolderName,
	}, nil
}

func (h *Handler) payment(req paymentRequest) (Payment, error) {
	method, err := ParsePaymentMethod(req.Method)
	if err != nil {
		return Payment{}, err
	}
	return Payment{Method: method, AmountTendered: pricing.Money(req.AmountTendered)}, nil
}

// Quote handles POST /sessions/{id}/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	policy, err := h.policy(req.Discount)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	var pay *Payment
	if req.Payment != nil {
		p, err := h.payment(*req.Payment)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
		pay = &p
	}
	quote, err := h.Svc.Quote(r.Context(), id, policy, pay)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, quote)
}

// Checkout handles POST /sessions/{id}/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
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
	policy, err := h.policy(req.Discount)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	pay, err := h.payment(req.Payment)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
		return
	}
	receipt, err := h.Svc.Checkout(r.Context(), id, pay, policy)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, receipt)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid session id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
	case errors.Is(err, cart.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "cart exceeds current stock", nil)
	case errors.Is(err, ErrValidationFailed):
		common.JSONError(w, http.StatusUnprocessableEntity, "CHECKOUT_REJECTED", err.Error(), nil)
	default:
		common.RenderError(w, err)
	}
}
