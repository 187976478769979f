package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SplitEqual      SplitMethod = "EQUAL"
	SplitExact      SplitMethod = "EXACT"
	SplitPercentage SplitMethod = "PERCENTAGE"
)

type (
	// SplitMethod is the allocation policy governing how a total is divided
	// among participants.
	SplitMethod string

	// User is a registered account. IDs are random UUIDs.
	User struct {
		ID           string
		Email        string
		Name         string
		PasswordHash string
		CreatedAt    time.Time
	}

	// Expense is a recorded shared cost. Immutable once created; shares are
	// owned by the expense and live and die with it.
	Expense struct {
		ID          string
		Description string
		TotalAmount decimal.Decimal
		CreatedBy   string
		SplitMethod SplitMethod
		CreatedAt   time.Time
		UpdatedAt   time.Time
		Shares      []ExpenseShare
	}

	// ExpenseShare is one participant's owed portion of an expense.
	// Percentage is set only for PERCENTAGE splits.
	ExpenseShare struct {
		ID         string
		ExpenseID  string
		UserID     string
		Amount     decimal.Decimal
		Percentage *decimal.Decimal
	}

	// ShareWithExpense pairs a share with its owning expense, for per-user
	// listings and exports.
	ShareWithExpense struct {
		Share   ExpenseShare
		Expense Expense
	}
)

var (
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 255 characters)")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrTooManyDecimals    = errors.New("amount must have at most 2 decimal places")
	ErrInvalidSplitMethod = errors.New("invalid split method")
	ErrNoParticipants     = errors.New("at least one participant required")
	ErrMissingAmount      = errors.New("amount required for exact split")
	ErrMissingPercentage  = errors.New("percentage required for percentage split")
	ErrPercentageRange    = errors.New("percentage must be between 0 and 100")
)

func (m SplitMethod) Valid() bool {
	switch m {
	case SplitEqual, SplitExact, SplitPercentage:
		return true
	}
	return false
}

// NewExpenseInput is the request to record an expense.
type NewExpenseInput struct {
	Description  string
	TotalAmount  decimal.Decimal
	SplitMethod  SplitMethod
	CreatedBy    string
	Participants []ParticipantInput
}

// Validate checks the request shape before any allocation or persistence
// happens. Allocation-level failures (unknown users, mismatched sums) are the
// allocation engine's job.
func (in NewExpenseInput) Validate() error {
	if len(strings.TrimSpace(in.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(in.Description) > 255 {
		return ErrDescriptionTooLong
	}
	if err := ValidateAmount(in.TotalAmount); err != nil {
		return err
	}
	if !in.SplitMethod.Valid() {
		return ErrInvalidSplitMethod
	}
	if len(in.Participants) == 0 {
		return ErrNoParticipants
	}
	for _, p := range in.Participants {
		switch in.SplitMethod {
		case SplitExact:
			if p.Amount == nil {
				return ErrMissingAmount
			}
			if err := ValidateAmount(*p.Amount); err != nil {
				return err
			}
		case SplitPercentage:
			if p.Percentage == nil {
				return ErrMissingPercentage
			}
			if p.Percentage.IsNegative() || p.Percentage.GreaterThan(hundred) {
				return ErrPercentageRange
			}
		}
	}
	return nil
}
