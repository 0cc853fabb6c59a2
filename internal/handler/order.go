package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/geo"
	"github.com/cartloop/checkout/internal/domain/order"
)

type lineItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type quoteReq struct {
	Items       []lineItemReq   `json:"items"`
	Lat         float64         `json:"lat"`
	Lng         float64         `json:"lng"`
	PromoCode   string          `json:"promo_code,omitempty"`
	PointsToUse int             `json:"points_to_use,omitempty"`
	Tip         decimal.Decimal `json:"tip"`
}

type commitReq struct {
	quoteReq
	DeliveryAddress string `json:"delivery_address"`
	CustomerName    string `json:"customer_name"`
	CustomerPhone   string `json:"customer_phone"`
}

type quoteResp struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	Tip            decimal.Decimal `json:"tip"`
	PromoDiscount  decimal.Decimal `json:"promo_discount"`
	PointsDiscount decimal.Decimal `json:"points_discount"`
	Total          decimal.Decimal `json:"total"`
	PointsToEarn   int             `json:"points_to_earn"`
	Items          []order.Item    `json:"items"`
}

type orderResp struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	Status          string          `json:"status"`
	DeliveryAddress string          `json:"delivery_address"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	ShippingCost    decimal.Decimal `json:"shipping_cost"`
	Tip             decimal.Decimal `json:"tip"`
	PromoDiscount   decimal.Decimal `json:"promo_discount"`
	PointsDiscount  decimal.Decimal `json:"points_discount"`
	Total           decimal.Decimal `json:"total"`
	PromoCode       string          `json:"promo_code,omitempty"`
	PointsUsed      int             `json:"points_used"`
	PointsEarned    int             `json:"points_earned"`
	Items           []order.Item    `json:"items"`
}

func (q quoteReq) toDomain(uid string) order.QuoteRequest {
	items := make([]order.LineItem, len(q.Items))
	for i, it := range q.Items {
		items[i] = order.LineItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return order.QuoteRequest{
		UserID:      uid,
		Items:       items,
		Destination: geo.Point{Lat: q.Lat, Lng: q.Lng},
		PromoCode:   q.PromoCode,
		PointsToUse: q.PointsToUse,
		Tip:         q.Tip,
	}
}

func toOrderResp(o *order.Order) orderResp {
	return orderResp{
		ID:              o.ID,
		CreatedAt:       o.CreatedAt,
		Status:          string(o.Status),
		DeliveryAddress: o.DeliveryAddress,
		Subtotal:        o.Subtotal,
		ShippingCost:    o.ShippingCost,
		Tip:             o.Tip,
		PromoDiscount:   o.PromoDiscount,
		PointsDiscount:  o.PointsDiscount,
		Total:           o.Total,
		PromoCode:       o.PromoCode,
		PointsUsed:      o.PointsUsed,
		PointsEarned:    o.PointsEarned,
		Items:           o.Items,
	}
}

func (h *Handler) quoteOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "user id required")
		return
	}

	var req quoteReq
	if !decodeBody(w, r, &req) {
		return
	}

	quote, err := h.orders.Quote(r.Context(), req.toDomain(uid))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, quoteResp{
		Subtotal:       quote.Subtotal,
		ShippingCost:   quote.ShippingCost,
		Tip:            quote.Tip,
		PromoDiscount:  quote.PromoDiscount,
		PointsDiscount: quote.PointsDiscount,
		Total:          quote.Total,
		PointsToEarn:   quote.PointsToEarn,
		Items:          quote.Lines,
	})
}

func (h *Handler) commitOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "user id required")
		return
	}

	var req commitReq
	if !decodeBody(w, r, &req) {
		return
	}
	if req.DeliveryAddress == "" {
		respondError(w, http.StatusBadRequest, "delivery address required")
		return
	}

	o, err := h.orders.Commit(r.Context(), order.CommitRequest{
		QuoteRequest:    req.toDomain(uid),
		DeliveryAddress: req.DeliveryAddress,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResp(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "user id required")
		return
	}

	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"), uid)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "user id required")
		return
	}

	list, err := h.orders.ListUserOrders(r.Context(), uid)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]orderResp, len(list))
	for i := range list {
		out[i] = toOrderResp(&list[i])
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	orderID := chi.URLParam(r, "orderID")
	if err := h.orders.SetStatus(r.Context(), orderID, order.Status(req.Status)); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"id":     orderID,
		"status": req.Status,
	})
}
