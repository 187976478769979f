// Package sheets defines the outbound ports for tabular exports.
package sheets

import (
	"context"
	"io"

	"splitledger/internal/core"
)

// Ports for outbound adapters.
type (
	// BalanceSheetWriter renders balance rows into a downloadable
	// spreadsheet. includeParticipant controls whether the participant
	// column appears (it is omitted for single-user exports).
	BalanceSheetWriter interface {
		WriteBalanceSheet(w io.Writer, sheetName string, rows []core.BalanceRow, includeParticipant bool) error
	}

	// RowAppender mirrors balance rows to an external sheet, one call per
	// expense. Used by the export-sync worker.
	RowAppender interface {
		AppendRows(ctx context.Context, rows []core.BalanceRow) error
	}
)

// Header returns the export column headers. The participant column is
// omitted for single-user scope.
func Header(includeParticipant bool) []string {
	if includeParticipant {
		return []string{"Expense Description", "Total Amount", "Split Method", "Created By", "User", "Amount", "Percentage"}
	}
	return []string{"Expense Description", "Total Amount", "Split Method", "Created By", "Amount", "Percentage"}
}

// Cells flattens a balance row into export cells matching Header's layout.
func Cells(r core.BalanceRow, includeParticipant bool) []string {
	if includeParticipant {
		return []string{r.Description, r.TotalAmount, r.SplitMethod, r.CreatedBy, r.Participant, r.Amount, r.Percentage}
	}
	return []string{r.Description, r.TotalAmount, r.SplitMethod, r.CreatedBy, r.Amount, r.Percentage}
}
