package core

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSplitMethodValid(t *testing.T) {
	for _, m := range []SplitMethod{SplitEqual, SplitExact, SplitPercentage} {
		if !m.Valid() {
			t.Fatalf("%s should be valid", m)
		}
	}
	if SplitMethod("HALVSIES").Valid() {
		t.Fatalf("unexpected valid method")
	}
}

func TestNewExpenseInputValidate(t *testing.T) {
	good := NewExpenseInput{
		Description:  "dinner",
		TotalAmount:  decimal.RequireFromString("30.00"),
		SplitMethod:  SplitEqual,
		CreatedBy:    "u1",
		Participants: []ParticipantInput{{UserID: "u1"}, {UserID: "u2"}},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*NewExpenseInput)
		want   error
	}{
		{"empty description", func(in *NewExpenseInput) { in.Description = "  " }, ErrEmptyDescription},
		{"long description", func(in *NewExpenseInput) { in.Description = strings.Repeat("x", 256) }, ErrDescriptionTooLong},
		{"negative total", func(in *NewExpenseInput) { in.TotalAmount = decimal.RequireFromString("-1") }, ErrNegativeAmount},
		{"sub-cent total", func(in *NewExpenseInput) { in.TotalAmount = decimal.RequireFromString("1.001") }, ErrTooManyDecimals},
		{"bad method", func(in *NewExpenseInput) { in.SplitMethod = "WEIRD" }, ErrInvalidSplitMethod},
		{"no participants", func(in *NewExpenseInput) { in.Participants = nil }, ErrNoParticipants},
		{"exact without amount", func(in *NewExpenseInput) {
			in.SplitMethod = SplitExact
		}, ErrMissingAmount},
		{"percentage without percentage", func(in *NewExpenseInput) {
			in.SplitMethod = SplitPercentage
		}, ErrMissingPercentage},
		{"percentage above 100", func(in *NewExpenseInput) {
			in.SplitMethod = SplitPercentage
			p := decimal.RequireFromString("150")
			in.Participants = []ParticipantInput{{UserID: "u1", Percentage: &p}}
		}, ErrPercentageRange},
	}
	for _, tc := range cases {
		in := good
		in.Participants = append([]ParticipantInput(nil), good.Participants...)
		tc.mutate(&in)
		if err := in.Validate(); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestBalanceRowsFor(t *testing.T) {
	pct := decimal.RequireFromString("40")
	e := Expense{
		Description: "rent",
		TotalAmount: decimal.RequireFromString("5000.00"),
		CreatedBy:   "u1",
		SplitMethod: SplitPercentage,
		Shares: []ExpenseShare{
			{UserID: "u1", Amount: decimal.RequireFromString("2000.00"), Percentage: &pct},
			{UserID: "u2", Amount: decimal.RequireFromString("3000.00")},
		},
	}
	emails := map[string]string{"u1": "a@example.com", "u2": "b@example.com"}

	rows := BalanceRowsFor(e, emails, true)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Participant != "a@example.com" || rows[0].CreatedBy != "a@example.com" {
		t.Fatalf("unexpected identifiers: %+v", rows[0])
	}
	if rows[0].Percentage != "40" {
		t.Fatalf("expected percentage 40, got %q", rows[0].Percentage)
	}
	if rows[1].Percentage != "" {
		t.Fatalf("expected blank percentage, got %q", rows[1].Percentage)
	}

	mine := BalanceRowsFor(e, emails, false)
	if mine[0].Participant != "" {
		t.Fatalf("single-user rows must omit the participant column")
	}
}
