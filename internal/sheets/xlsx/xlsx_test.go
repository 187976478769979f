package xlsx

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"splitledger/internal/core"
)

func sampleRows() []core.BalanceRow {
	return []core.BalanceRow{
		{
			Description: "rent",
			TotalAmount: "5000.00",
			SplitMethod: "PERCENTAGE",
			CreatedBy:   "a@example.com",
			Participant: "a@example.com",
			Amount:      "2000.00",
			Percentage:  "40",
		},
		{
			Description: "rent",
			TotalAmount: "5000.00",
			SplitMethod: "PERCENTAGE",
			CreatedBy:   "a@example.com",
			Participant: "b@example.com",
			Amount:      "3000.00",
			Percentage:  "60",
		},
	}
}

func TestWriteBalanceSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().WriteBalanceSheet(&buf, "Balance Sheet", sampleRows(), true))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Balance Sheet")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Expense Description", "Total Amount", "Split Method", "Created By", "User", "Amount", "Percentage"}, got[0])
	assert.Equal(t, []string{"rent", "5000.00", "PERCENTAGE", "a@example.com", "a@example.com", "2000.00", "40"}, got[1])
	assert.Equal(t, "b@example.com", got[2][4])
}

func TestWriteBalanceSheetSingleUserOmitsParticipant(t *testing.T) {
	rows := sampleRows()
	for i := range rows {
		rows[i].Participant = ""
	}

	var buf bytes.Buffer
	require.NoError(t, New().WriteBalanceSheet(&buf, "My Expense Sheet", rows, false))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("My Expense Sheet")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, []string{"Expense Description", "Total Amount", "Split Method", "Created By", "Amount", "Percentage"}, got[0])
	assert.Len(t, got[1], 6)
}

func TestWriteBalanceSheetEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().WriteBalanceSheet(&buf, "Balance Sheet", nil, true))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Balance Sheet")
	require.NoError(t, err)
	require.Len(t, got, 1, "header only")
}
