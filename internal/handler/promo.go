package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type validatePromoReq struct {
	Code        string          `json:"code"`
	OrderAmount decimal.Decimal `json:"order_amount"`
}

type validatePromoResp struct {
	Valid       bool            `json:"valid"`
	Code        string          `json:"code"`
	Description string          `json:"description,omitempty"`
	Discount    decimal.Decimal `json:"discount"`
}

// validatePromo checks a code against an order amount without consuming a
// use. Redemption is counted only when an order commits.
func (h *Handler) validatePromo(w http.ResponseWriter, r *http.Request) {
	var req validatePromoReq
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "code required")
		return
	}

	res, err := h.promos.Check(r.Context(), req.Code, req.OrderAmount)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, validatePromoResp{
		Valid:       true,
		Code:        res.Rule.Code,
		Description: res.Rule.Description,
		Discount:    res.Discount.Round(2),
	})
}
