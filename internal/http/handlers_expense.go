package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/core"
	"splitledger/internal/sheets/xlsx"
)

type participantRequest struct {
	UserID     string `json:"user_id"`
	Amount     string `json:"amount,omitempty"`
	Percentage string `json:"percentage,omitempty"`
}

type createExpenseRequest struct {
	Description  string               `json:"description"`
	TotalAmount  string               `json:"total_amount"`
	SplitMethod  string               `json:"split_method"`
	Participants []participantRequest `json:"participants"`
}

func (req createExpenseRequest) toInput(createdBy string) (core.NewExpenseInput, error) {
	total, err := core.ParseAmount(req.TotalAmount)
	if err != nil {
		return core.NewExpenseInput{}, fmt.Errorf("total_amount: %w", err)
	}

	participants := make([]core.ParticipantInput, 0, len(req.Participants))
	for _, p := range req.Participants {
		in := core.ParticipantInput{UserID: p.UserID}
		if p.Amount != "" {
			amount, err := core.ParseAmount(p.Amount)
			if err != nil {
				return core.NewExpenseInput{}, fmt.Errorf("participant %s amount: %w", p.UserID, err)
			}
			in.Amount = &amount
		}
		if p.Percentage != "" {
			pct, err := decimal.NewFromString(p.Percentage)
			if err != nil {
				return core.NewExpenseInput{}, fmt.Errorf("participant %s percentage: %w", p.UserID, err)
			}
			in.Percentage = &pct
		}
		participants = append(participants, in)
	}

	return core.NewExpenseInput{
		Description:  req.Description,
		TotalAmount:  total,
		SplitMethod:  core.SplitMethod(req.SplitMethod),
		CreatedBy:    createdBy,
		Participants: participants,
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := req.toInput(userIDFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := s.svc.CreateExpense(r.Context(), input)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		if isInputError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create expense", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create expense")
		return
	}

	expensesCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, toExpenseResponse(*expense))
}

func isInputError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyDescription,
		core.ErrDescriptionTooLong,
		core.ErrNegativeAmount,
		core.ErrTooManyDecimals,
		core.ErrInvalidSplitMethod,
		core.ErrNoParticipants,
		core.ErrMissingAmount,
		core.ErrMissingPercentage,
		core.ErrPercentageRange,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.AllExpenses(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list expenses", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list expenses")
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

type myShareResponse struct {
	ExpenseID   string `json:"expense_id"`
	Description string `json:"description"`
	TotalAmount string `json:"total_amount"`
	SplitMethod string `json:"split_method"`
	CreatedBy   string `json:"created_by"`
	Amount      string `json:"amount"`
	Percentage  string `json:"percentage,omitempty"`
}

func (s *Server) handleMyExpenses(w http.ResponseWriter, r *http.Request) {
	shares, err := s.svc.SharesForUser(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load user shares", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load expenses")
		return
	}

	out := make([]myShareResponse, 0, len(shares))
	for _, sw := range shares {
		resp := myShareResponse{
			ExpenseID:   sw.Expense.ID,
			Description: sw.Expense.Description,
			TotalAmount: sw.Expense.TotalAmount.StringFixed(core.MoneyPrecision),
			SplitMethod: string(sw.Expense.SplitMethod),
			CreatedBy:   sw.Expense.CreatedBy,
			Amount:      sw.Share.Amount.StringFixed(core.MoneyPrecision),
		}
		if sw.Share.Percentage != nil {
			resp.Percentage = sw.Share.Percentage.String()
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"shares": out})
}

func (s *Server) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.BalanceRows(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build balance sheet", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build balance sheet")
		return
	}
	s.serveSheet(w, r, "Balance Sheet", "balance_sheet", rows, true)
}

func (s *Server) handleMyBalanceSheet(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.UserBalanceRows(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build user balance sheet", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build balance sheet")
		return
	}
	s.serveSheet(w, r, "My Expense Sheet", "my_expense_sheet", rows, false)
}

func (s *Server) serveSheet(w http.ResponseWriter, r *http.Request, sheetName, filePrefix string, rows []core.BalanceRow, includeParticipant bool) {
	filename := fmt.Sprintf("%s_%s.xlsx", filePrefix, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := s.sheetWriter.WriteBalanceSheet(w, sheetName, rows, includeParticipant); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write spreadsheet", "error", err)
	}
}
