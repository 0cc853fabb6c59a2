package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/cartloop/checkout/internal/domain/order"
	"github.com/cartloop/checkout/internal/domain/points"
	"github.com/cartloop/checkout/internal/domain/promo"
	"github.com/cartloop/checkout/internal/domain/shipping"
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, apiError{Code: status, Message: message})
}

// userID extracts the caller identity set by the authenticating proxy.
// Identity verification happens upstream; an absent header is a malformed
// request, not an authorization failure.
func userID(r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-ID")
	return id, id != ""
}

// respondDomainError maps domain errors onto HTTP statuses. Validation
// failures are 400, business outcomes 422 (409 for stock conflicts),
// missing resources 404, everything else a logged 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidQty *order.InvalidQuantityError
		outOfStock *order.OutOfStockError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidDestination),
		errors.Is(err, order.ErrNegativeTip),
		errors.Is(err, order.ErrNegativePoints),
		errors.Is(err, order.ErrInvalidStatus),
		errors.As(err, &invalidQty):
		respondError(w, http.StatusBadRequest, err.Error())

	case errors.As(err, &outOfStock):
		respondError(w, http.StatusConflict, err.Error())

	case errors.Is(err, order.ErrProductsUnavailable),
		errors.Is(err, shipping.ErrUnavailable),
		errors.Is(err, promo.ErrNotFound),
		errors.Is(err, promo.ErrExpired),
		errors.Is(err, promo.ErrMinOrderAmount),
		errors.Is(err, promo.ErrUsageLimitReached),
		errors.Is(err, points.ErrInsufficientPoints),
		errors.Is(err, points.ErrNonPositivePoints):
		respondError(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found")

	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
