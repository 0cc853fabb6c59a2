package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/geo"
)

type shippingEstimateResp struct {
	Available    bool            `json:"available"`
	Cost         decimal.Decimal `json:"cost,omitempty"`
	DistanceKm   float64         `json:"distance_km"`
	DeliveryDays int             `json:"delivery_days,omitempty"`
	DeliveryDate string          `json:"delivery_date,omitempty"`
	ZoneName     string          `json:"zone_name,omitempty"`
	Message      string          `json:"message"`
}

func (h *Handler) shippingEstimate(w http.ResponseWriter, r *http.Request) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if err1 != nil || err2 != nil {
		respondError(w, http.StatusBadRequest, "lat and lng query parameters required")
		return
	}

	dest := geo.Point{Lat: lat, Lng: lng}
	if !dest.Valid() {
		respondError(w, http.StatusBadRequest, "invalid delivery coordinates")
		return
	}

	est, err := h.shipping.Estimate(r.Context(), dest)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	resp := shippingEstimateResp{
		Available:  est.Available,
		DistanceKm: est.DistanceKm,
		Message:    est.Message,
	}
	if est.Available {
		resp.Cost = est.Cost
		resp.DeliveryDays = est.DeliveryDays
		resp.DeliveryDate = est.DeliveryDate.Format(time.DateOnly)
		resp.ZoneName = est.ZoneName
	}
	respondJSON(w, http.StatusOK, resp)
}
