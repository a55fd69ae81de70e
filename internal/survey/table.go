package survey

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// columnKind records how a column's cells are stored in the frame.
type columnKind int

const (
	// numericColumn cells are all numbers and live in a Float series.
	numericColumn columnKind = iota
	// textColumn cells are all text and live in a String series.
	textColumn
	// mixedColumn holds numbers and text in one String series. Numbers are
	// stored in their shortest decimal form and decoded back on read.
	mixedColumn
)

// Table is a rectangular, column-named survey dataset with one row per
// respondent, backed by a gota DataFrame. A Table is never modified after
// construction; accessors decode cells into Values so callers cannot reach
// the underlying frame.
type Table struct {
	df    dataframe.DataFrame
	names []string
	index map[string]int
	kinds []columnKind
	nrows int
}

// NewTable builds a table from unique column names and row-major values.
// Rows shorter than the header are padded with Empty.
func NewTable(columns []string, rows [][]Value) (*Table, error) {
	for i, row := range rows {
		if len(row) > len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", i, len(row), len(columns))
		}
	}
	cols := make([][]Value, len(columns))
	for j := range columns {
		col := make([]Value, len(rows))
		for i, row := range rows {
			if j < len(row) {
				col[i] = row[j]
			}
		}
		cols[j] = col
	}
	return fromColumns(columns, cols, len(rows))
}

// fromColumns builds a table from column-major values of equal length.
func fromColumns(names []string, cols [][]Value, nrows int) (*Table, error) {
	index := make(map[string]int, len(names))
	for i, c := range names {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		index[c] = i
	}

	t := &Table{
		names: append([]string(nil), names...),
		index: index,
		kinds: make([]columnKind, len(names)),
		nrows: nrows,
	}
	if len(names) == 0 {
		return t, nil
	}

	ss := make([]series.Series, len(names))
	for j, name := range names {
		ss[j], t.kinds[j] = encodeColumn(name, cols[j])
	}
	df := dataframe.New(ss...)
	if df.Err != nil {
		return nil, fmt.Errorf("build table: %w", df.Err)
	}
	t.df = df
	return t, nil
}

// classify picks the narrowest series type that holds every present cell.
func classify(vals []Value) columnKind {
	numbers, texts := 0, 0
	for _, v := range vals {
		switch v.Kind {
		case KindNumber:
			numbers++
		case KindText:
			texts++
		}
	}
	switch {
	case texts == 0:
		return numericColumn
	case numbers == 0:
		return textColumn
	default:
		return mixedColumn
	}
}

// encodeColumn converts vals into a series. Missing cells become NA.
func encodeColumn(name string, vals []Value) (series.Series, columnKind) {
	kind := classify(vals)
	cells := make([]string, len(vals))
	for i, v := range vals {
		switch v.Kind {
		case KindNumber:
			cells[i] = strconv.FormatFloat(v.Num, 'g', -1, 64)
		case KindText:
			cells[i] = v.Str
		default:
			cells[i] = "NaN"
		}
	}
	if kind == numericColumn {
		return series.New(cells, series.Float, name), kind
	}
	return series.New(cells, series.String, name), kind
}

// decode turns a frame element back into a Value.
func decode(e series.Element, kind columnKind) Value {
	if e.IsNA() {
		return Empty
	}
	switch kind {
	case numericColumn:
		f := e.Float()
		if math.IsNaN(f) {
			return Empty
		}
		return Number(f)
	case textColumn:
		return Text(e.String())
	default:
		s := e.String()
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return Number(f)
		}
		return Text(s)
	}
}

// Len returns the number of respondent rows.
func (t *Table) Len() int { return t.nrows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.names) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.names...)
}

// HasColumn reports whether a column with the exact name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// At returns the cell at row i of the named column.
func (t *Table) At(i int, column string) Value {
	j, ok := t.index[column]
	if !ok || i < 0 || i >= t.nrows {
		return Empty
	}
	return t.cell(i, j)
}

func (t *Table) cell(i, j int) Value {
	return decode(t.df.Elem(i, j), t.kinds[j])
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Value, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columnAt(j), true
}

func (t *Table) columnAt(j int) []Value {
	out := make([]Value, t.nrows)
	for i := range out {
		out[i] = t.cell(i, j)
	}
	return out
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Value {
	out := make([]Value, len(t.names))
	for j := range out {
		out[j] = t.cell(i, j)
	}
	return out
}

// QuestionColumns returns the columns belonging to question id, in table
// order, leaving out any column that starts with one of the exclude prefixes.
func (t *Table) QuestionColumns(id string, exclude ...string) []string {
	var out []string
	for _, c := range t.names {
		if !MatchesQuestion(c, id) {
			continue
		}
		skip := false
		for _, ex := range exclude {
			if strings.HasPrefix(c, ex) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, c)
		}
	}
	return out
}

// Equal reports whether both tables have the same columns and cells.
func (t *Table) Equal(other *Table) bool {
	if other == nil || len(t.names) != len(other.names) || t.nrows != other.nrows {
		return false
	}
	for j, c := range t.names {
		if other.names[j] != c {
			return false
		}
	}
	for j := range t.names {
		for i := 0; i < t.nrows; i++ {
			if t.cell(i, j) != other.cell(i, j) {
				return false
			}
		}
	}
	return true
}

// selectColumns returns a table holding only the columns keep accepts.
func (t *Table) selectColumns(keep func(name string) bool) (*Table, error) {
	var idx []int
	for j, c := range t.names {
		if keep(c) {
			idx = append(idx, j)
		}
	}
	if len(idx) == len(t.names) {
		return t, nil
	}
	out := &Table{
		names: make([]string, len(idx)),
		index: make(map[string]int, len(idx)),
		kinds: make([]columnKind, len(idx)),
		nrows: t.nrows,
	}
	for k, j := range idx {
		out.names[k] = t.names[j]
		out.index[t.names[j]] = k
		out.kinds[k] = t.kinds[j]
	}
	if len(idx) == 0 {
		return out, nil
	}
	out.df = t.df.Select(idx)
	if out.df.Err != nil {
		return nil, fmt.Errorf("select columns: %w", out.df.Err)
	}
	return out, nil
}

// filterRows returns a table holding the rows whose cell in column j
// satisfies keep.
func (t *Table) filterRows(j int, keep func(series.Element) bool) (*Table, error) {
	out := &Table{
		df:    t.df,
		names: t.names,
		index: t.index,
		kinds: append([]columnKind(nil), t.kinds...),
		nrows: t.nrows,
	}
	if t.nrows == 0 {
		return out, nil
	}
	out.df = t.df.Filter(dataframe.F{
		Colname:    t.df.Names()[j],
		Comparator: series.CompFunc,
		Comparando: keep,
	})
	if out.df.Err != nil {
		return nil, fmt.Errorf("filter rows: %w", out.df.Err)
	}
	out.nrows = out.df.Nrow()
	return out, nil
}

// replaceColumn swaps column j for vals. Only tables the caller built itself
// may be modified this way.
func (t *Table) replaceColumn(j int, vals []Value) error {
	s, kind := encodeColumn(t.df.Names()[j], vals)
	df := t.df.Mutate(s)
	if df.Err != nil {
		return fmt.Errorf("replace column %q: %w", t.names[j], df.Err)
	}
	t.df = df
	t.kinds[j] = kind
	return nil
}

// MatchesQuestion reports whether column belongs to question id: the name
// starts with id and the id is not followed by another digit, so Q1 does not
// claim Q10.
func MatchesQuestion(column, id string) bool {
	if id == "" || !strings.HasPrefix(column, id) {
		return false
	}
	if len(column) == len(id) {
		return true
	}
	next := column[len(id)]
	return next < '0' || next > '9'
}

// UniqueHeaders makes spreadsheet headers usable as column names: blanks
// become "Unnamed: <index>" and repeats get ".1", ".2" suffixes.
func UniqueHeaders(headers []string) []string {
	out := make([]string, len(headers))
	seen := make(map[string]bool, len(headers))
	repeats := make(map[string]int)
	for i, h := range headers {
		name := h
		if strings.TrimSpace(h) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if seen[name] {
			base := name
			for {
				repeats[base]++
				candidate := fmt.Sprintf("%s.%d", base, repeats[base])
				if !seen[candidate] {
					name = candidate
					break
				}
			}
		}
		seen[name] = true
		out[i] = name
	}
	return out
}
