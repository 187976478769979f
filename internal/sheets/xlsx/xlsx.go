// Package xlsx renders balance sheets as .xlsx workbooks.
package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"splitledger/internal/core"
	"splitledger/internal/sheets"
)

// ContentType is the MIME type for .xlsx downloads.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Writer implements sheets.BalanceSheetWriter using excelize.
type Writer struct{}

var _ sheets.BalanceSheetWriter = Writer{}

func New() Writer {
	return Writer{}
}

// WriteBalanceSheet writes a single-sheet workbook: a header row followed by
// one row per share.
func (Writer) WriteBalanceSheet(w io.Writer, sheetName string, rows []core.BalanceRow, includeParticipant bool) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := sheets.Header(includeParticipant)
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, row := range rows {
		cells := sheets.Cells(row, includeParticipant)
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
