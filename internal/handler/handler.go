// Package handler exposes the pricing and fulfillment engine over HTTP.
// Transport concerns only: JSON codec, routing, and mapping domain errors
// to status codes live here, business rules stay in the domain packages.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/cartloop/checkout/internal/domain/order"
	"github.com/cartloop/checkout/internal/domain/points"
	"github.com/cartloop/checkout/internal/domain/promo"
	"github.com/cartloop/checkout/internal/domain/shipping"
)

// Handler wires the domain services into HTTP endpoints.
type Handler struct {
	orders   *order.Service
	shipping *shipping.Service
	promos   promo.Validator
	ledger   *points.Ledger
}

// New creates a Handler over the given services.
func New(
	orders *order.Service,
	ship *shipping.Service,
	promos promo.Validator,
	ledger *points.Ledger,
) *Handler {
	return &Handler{
		orders:   orders,
		shipping: ship,
		promos:   promos,
		ledger:   ledger,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders/quote", h.quoteOrder)
		r.Post("/orders", h.commitOrder)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Patch("/orders/{orderID}/status", h.setOrderStatus)

		r.Get("/shipping/estimate", h.shippingEstimate)
		r.Post("/promo/validate", h.validatePromo)

		r.Get("/points/balance", h.pointsBalance)
		r.Get("/points/history", h.pointsHistory)
	})

	return r
}
