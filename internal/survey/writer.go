package survey

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook serializes t as a single-sheet workbook with one header row.
// Numbers are written as numeric cells, text as string cells and missing
// values as blank cells, so ReadCanonical can restore each cell's kind.
func WriteWorkbook(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), CanonicalSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, t.Width())
	for i, c := range t.names {
		header[i] = c
	}
	if err := f.SetSheetRow(CanonicalSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		cells := make([]interface{}, len(row))
		for j, v := range row {
			switch v.Kind {
			case KindNumber:
				cells[j] = v.Num
			case KindText:
				cells[j] = v.Str
			default:
				cells[j] = nil
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(CanonicalSheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
