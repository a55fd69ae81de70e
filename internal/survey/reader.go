package survey

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SupportedExtensions lists the upload formats ReadWorkbook accepts.
var SupportedExtensions = []string{".xls", ".xlsx"}

// Layout of the survey platform export: row 1 holds the column names, rows
// 0, 2 and 3 carry platform metadata.
const (
	exportHeaderRow = 1
	exportDataRow   = 4
)

// CanonicalSheet is the sheet name WriteWorkbook uses.
const CanonicalSheet = "canonical"

// missingTokens are the cell texts a raw export uses for "no answer".
var missingTokens = []string{"", "#N/A", "N/A", "n/a", "NA", "<NA>", "NULL", "null", "NaN", "nan", "None"}

// CheckFormat returns an UnsupportedFormatError unless name has a readable
// spreadsheet extension.
func CheckFormat(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return nil
		}
	}
	return &UnsupportedFormatError{Name: name, Supported: SupportedExtensions}
}

// ReadWorkbook parses a raw survey export. The first sheet is used; header
// names are NFC-normalized so they compare equal to the instrument's.
func ReadWorkbook(r io.Reader, name string) (*Table, error) {
	if err := CheckFormat(name); err != nil {
		return nil, err
	}
	rows, err := readFirstSheet(r, strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(rows) <= exportHeaderRow {
		return nil, &SchemaError{Message: fmt.Sprintf("%s has no header row", name)}
	}
	var data [][]string
	if len(rows) > exportDataRow {
		data = rows[exportDataRow:]
	}
	return buildTable(rows[exportHeaderRow], data)
}

// ReadCanonical reads a workbook produced by WriteWorkbook: one header row
// followed by data. String cells come back as text even when they look
// numeric.
func ReadCanonical(r io.Reader) (*Table, error) {
	rows, text, err := readXLSX(r, true)
	if err != nil {
		return nil, fmt.Errorf("read canonical workbook: %w", err)
	}
	if len(rows) == 0 {
		return nil, &SchemaError{Message: "canonical workbook is empty"}
	}

	data := rows[1:]
	names := headerNames(rows[0], sheetWidth(rows[0], data))
	cols := make([][]Value, len(names))
	for j := range cols {
		col := make([]Value, len(data))
		for i, raw := range data {
			switch {
			case j >= len(raw):
			case text[i+1][j]:
				col[i] = Text(raw[j])
			default:
				col[i] = ParseValue(raw[j])
			}
		}
		cols[j] = col
	}
	return fromColumns(names, cols, len(data))
}

func readFirstSheet(r io.Reader, ext string) ([][]string, error) {
	if ext == ".xls" {
		return readXLS(r)
	}
	rows, _, err := readXLSX(r, false)
	return rows, err
}

// readXLSX returns the first sheet's raw cell strings. With cellTypes set it
// also reports which cells are stored as strings.
func readXLSX(r io.Reader, cellTypes bool) ([][]string, [][]bool, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if !cellTypes {
		return rows, nil, nil
	}

	text := make([][]bool, len(rows))
	for i, row := range rows {
		text[i] = make([]bool, len(row))
		for j := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, nil, err
			}
			ct, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to read type of %s: %w", cell, err)
			}
			switch ct {
			case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
				text[i][j] = true
			}
		}
	}
	return rows, text, nil
}

// readXLS returns the first sheet of a legacy BIFF workbook as formatted
// cell strings.
func readXLS(r io.Reader) (rows [][]string, err error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read workbook: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	// The BIFF decoder panics on some truncated streams.
	defer func() {
		if p := recover(); p != nil {
			rows, err = nil, fmt.Errorf("failed to open workbook: %v", p)
		}
	}()

	wb, err := xls.OpenReader(rs, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func sheetWidth(header []string, data [][]string) int {
	w := len(header)
	for _, row := range data {
		if len(row) > w {
			w = len(row)
		}
	}
	return w
}

// headerNames NFC-normalizes and deduplicates header cells, padding to w.
func headerNames(header []string, w int) []string {
	names := make([]string, w)
	nfc := transform.Chain(norm.NFC)
	for i := 0; i < len(header); i++ {
		h, _, err := transform.String(nfc, strings.TrimSpace(header[i]))
		if err != nil {
			h = header[i]
		}
		nfc.Reset()
		names[i] = h
	}
	return UniqueHeaders(names)
}

// buildTable loads raw export cells into a string frame, marking missing
// tokens NA, then types each column from its cell contents.
func buildTable(header []string, data [][]string) (*Table, error) {
	w := sheetWidth(header, data)
	names := headerNames(header, w)
	if w == 0 || len(data) == 0 {
		return NewTable(names, make([][]Value, len(data)))
	}

	records := make([][]string, 0, len(data)+1)
	records = append(records, names)
	for _, raw := range data {
		rec := make([]string, w)
		for j, cell := range raw {
			if strings.TrimSpace(cell) != "" {
				rec[j] = cell
			}
		}
		records = append(records, rec)
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingTokens),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("load records: %w", df.Err)
	}

	cols := make([][]Value, w)
	for j := range cols {
		col := make([]Value, df.Nrow())
		for i := range col {
			if e := df.Elem(i, j); !e.IsNA() {
				col[i] = ParseValue(e.String())
			}
		}
		cols[j] = col
	}
	return fromColumns(names, cols, df.Nrow())
}
