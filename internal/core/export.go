package core

// BalanceRow is one line of the tabular balance-sheet projection: one row per
// share. Participant is empty for single-user exports, Percentage is empty
// when the split carried none.
type BalanceRow struct {
	Description string
	TotalAmount string
	SplitMethod string
	CreatedBy   string
	Participant string
	Amount      string
	Percentage  string
}

// BalanceRowsFor projects an expense and its shares into export rows. emails
// maps user ids to the identifier shown in the sheet; unknown ids fall back to
// the raw id. When includeParticipant is false the participant column is left
// blank (single-user scope).
func BalanceRowsFor(e Expense, emails map[string]string, includeParticipant bool) []BalanceRow {
	ident := func(id string) string {
		if v, ok := emails[id]; ok {
			return v
		}
		return id
	}

	rows := make([]BalanceRow, 0, len(e.Shares))
	for _, s := range e.Shares {
		row := BalanceRow{
			Description: e.Description,
			TotalAmount: e.TotalAmount.StringFixed(MoneyPrecision),
			SplitMethod: string(e.SplitMethod),
			CreatedBy:   ident(e.CreatedBy),
			Amount:      s.Amount.StringFixed(MoneyPrecision),
		}
		if includeParticipant {
			row.Participant = ident(s.UserID)
		}
		if s.Percentage != nil {
			row.Percentage = s.Percentage.String()
		}
		rows = append(rows, row)
	}
	return rows
}
