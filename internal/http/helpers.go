package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"splitledger/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeValidationError maps an allocation rejection into a structured 400.
func writeValidationError(w http.ResponseWriter, verr *core.ValidationError) {
	allocationRejectionsTotal.WithLabelValues(string(verr.Kind)).Inc()

	body := map[string]string{
		"error": verr.Error(),
		"kind":  string(verr.Kind),
	}
	switch verr.Kind {
	case core.InvalidParticipant:
		body["user_id"] = verr.UserID
	case core.AmountMismatch:
		body["expected"] = verr.Expected.StringFixed(core.MoneyPrecision)
		body["actual"] = verr.Actual.StringFixed(core.MoneyPrecision)
	case core.PercentageMismatch:
		body["expected"] = verr.Expected.String()
		body["actual"] = verr.Actual.String()
	}
	writeJSON(w, http.StatusBadRequest, body)
}

type shareResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Amount     string `json:"amount"`
	Percentage string `json:"percentage,omitempty"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	TotalAmount string          `json:"total_amount"`
	CreatedBy   string          `json:"created_by"`
	SplitMethod string          `json:"split_method"`
	CreatedAt   time.Time       `json:"created_at"`
	Shares      []shareResponse `json:"shares"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	out := expenseResponse{
		ID:          e.ID,
		Description: e.Description,
		TotalAmount: e.TotalAmount.StringFixed(core.MoneyPrecision),
		CreatedBy:   e.CreatedBy,
		SplitMethod: string(e.SplitMethod),
		CreatedAt:   e.CreatedAt,
		Shares:      make([]shareResponse, 0, len(e.Shares)),
	}
	for _, sh := range e.Shares {
		sr := shareResponse{
			ID:     sh.ID,
			UserID: sh.UserID,
			Amount: sh.Amount.StringFixed(core.MoneyPrecision),
		}
		if sh.Percentage != nil {
			sr.Percentage = sh.Percentage.String()
		}
		out.Shares = append(out.Shares, sr)
	}
	return out
}
