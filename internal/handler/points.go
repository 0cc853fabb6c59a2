package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cartloop/checkout/internal/domain/points"
)

const defaultHistoryLimit = 50

type balanceResp struct {
	UserID          string    `json:"user_id"`
	TotalPoints     int       `json:"total_points"`
	AvailablePoints int       `json:"available_points"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type transactionResp struct {
	ID          string    `json:"id"`
	Points      int       `json:"points"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	OrderID     *string   `json:"order_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) pointsBalance(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "user id required")
		return
	}

	b, err := h.ledger.GetBalance(r.Context(), uid)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, balanceResp{
		UserID:          b.UserID,
		TotalPoints:     b.TotalPoints,
		AvailablePoints: b.AvailablePoints,
		UpdatedAt:       b.UpdatedAt,
	})
}

func (h *Handler) pointsHistory(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "user id required")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	txs, err := h.ledger.History(r.Context(), uid, limit)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]transactionResp, len(txs))
	for i, tx := range txs {
		out[i] = toTransactionResp(tx)
	}
	respondJSON(w, http.StatusOK, out)
}

func toTransactionResp(tx points.Transaction) transactionResp {
	return transactionResp{
		ID:          tx.ID,
		Points:      tx.Points,
		Type:        string(tx.Type),
		Description: tx.Description,
		OrderID:     tx.OrderID,
		CreatedAt:   tx.CreatedAt,
	}
}
