package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Directory is the participant-existence oracle. Implementations sit on top of
// whatever user store the application uses.
type Directory interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// ErrorKind classifies an allocation failure.
type ErrorKind string

const (
	InvalidParticipant ErrorKind = "invalid_participant"
	AmountMismatch     ErrorKind = "amount_mismatch"
	PercentageMismatch ErrorKind = "percentage_mismatch"
)

// ValidationError describes why an allocation was rejected. The whole
// operation fails; there is no partial result.
type ValidationError struct {
	Kind     ErrorKind
	UserID   string          // set for InvalidParticipant
	Expected decimal.Decimal // expected total (EXACT) or 100 (PERCENTAGE)
	Actual   decimal.Decimal
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case InvalidParticipant:
		return fmt.Sprintf("user with id %s does not exist", e.UserID)
	case AmountMismatch:
		return fmt.Sprintf("share amounts sum to %s, total amount is %s",
			e.Actual.StringFixed(MoneyPrecision), e.Expected.StringFixed(MoneyPrecision))
	case PercentageMismatch:
		return fmt.Sprintf("percentages sum to %s, must equal 100", e.Actual)
	}
	return string(e.Kind)
}

// ParticipantInput carries one participant's contribution to an allocation.
// Amount is used for EXACT splits, Percentage for PERCENTAGE splits.
type ParticipantInput struct {
	UserID     string
	Amount     *decimal.Decimal
	Percentage *decimal.Decimal
}

// Allocation is one participant's computed share. Percentage is nil except for
// PERCENTAGE splits.
type Allocation struct {
	UserID     string
	Amount     decimal.Decimal
	Percentage *decimal.Decimal
}

// Allocate divides total among participants under the given split method.
//
// Every referenced user must resolve through the directory; the first
// unresolvable id (in input order) fails the whole allocation. Directory
// lookup errors are treated the same as a missing user.
//
// The result preserves input order and always satisfies
// sum(amounts) == total exactly:
//   - EQUAL divides at cent precision and hands leftover cents, one each, to
//     the earliest participants;
//   - EXACT requires the supplied amounts to sum to total exactly;
//   - PERCENTAGE requires percentages to sum to exactly 100, computes
//     total*pct/100 per share and cent-quantizes with the same leftover rule.
//
// Pure function: no side effects beyond directory lookups.
func Allocate(ctx context.Context, total decimal.Decimal, method SplitMethod, participants []ParticipantInput, dir Directory) ([]Allocation, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	for _, p := range participants {
		ok, err := dir.Exists(ctx, p.UserID)
		if err != nil || !ok {
			return nil, &ValidationError{Kind: InvalidParticipant, UserID: p.UserID}
		}
	}

	switch method {
	case SplitEqual:
		return allocateEqual(total, participants), nil
	case SplitExact:
		return allocateExact(total, participants)
	case SplitPercentage:
		return allocatePercentage(total, participants)
	}
	return nil, ErrInvalidSplitMethod
}

func allocateEqual(total decimal.Decimal, participants []ParticipantInput) []Allocation {
	n := int64(len(participants))
	totalCents := cents(total)
	base := totalCents / n
	remainder := totalCents % n

	out := make([]Allocation, len(participants))
	for i, p := range participants {
		c := base
		if int64(i) < remainder {
			c++
		}
		out[i] = Allocation{UserID: p.UserID, Amount: fromCents(c)}
	}
	return out
}

func allocateExact(total decimal.Decimal, participants []ParticipantInput) ([]Allocation, error) {
	sum := decimal.Zero
	out := make([]Allocation, len(participants))
	for i, p := range participants {
		if p.Amount == nil {
			return nil, ErrMissingAmount
		}
		sum = sum.Add(*p.Amount)
		out[i] = Allocation{UserID: p.UserID, Amount: *p.Amount}
	}
	if !sum.Equal(total) {
		return nil, &ValidationError{Kind: AmountMismatch, Expected: total, Actual: sum}
	}
	return out, nil
}

func allocatePercentage(total decimal.Decimal, participants []ParticipantInput) ([]Allocation, error) {
	sum := decimal.Zero
	for _, p := range participants {
		if p.Percentage == nil {
			return nil, ErrMissingPercentage
		}
		sum = sum.Add(*p.Percentage)
	}
	if !sum.Equal(hundred) {
		return nil, &ValidationError{Kind: PercentageMismatch, Expected: hundred, Actual: sum}
	}

	// total*pct is the exact share in cents (possibly fractional). Floor each
	// share, then hand the leftover cents to the earliest participants so the
	// cent-quantized amounts still sum to the total.
	totalCents := cents(total)
	floors := make([]int64, len(participants))
	var floored int64
	for i, p := range participants {
		floors[i] = total.Mul(*p.Percentage).Floor().IntPart()
		floored += floors[i]
	}
	remainder := totalCents - floored

	out := make([]Allocation, len(participants))
	for i, p := range participants {
		c := floors[i]
		if int64(i) < remainder {
			c++
		}
		pct := *p.Percentage
		out[i] = Allocation{UserID: p.UserID, Amount: fromCents(c), Percentage: &pct}
	}
	return out, nil
}
