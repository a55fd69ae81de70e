package testutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// ExportWorkbook builds an .xlsx in the survey platform's export layout:
// a metadata row, the header row, two more metadata rows, then data.
func ExportWorkbook(t *testing.T, header []string, rows ...[]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	meta := func(row int, text string) {
		cell, err := excelize.CoordinatesToCellName(1, row)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(sheet, cell, text))
	}
	meta(1, "Survey export")
	h := make([]interface{}, len(header))
	for i, v := range header {
		h[i] = v
	}
	require.NoError(t, f.SetSheetRow(sheet, "A2", &h))
	meta(3, "Question type")
	meta(4, "Answer codes")

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+5)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}
