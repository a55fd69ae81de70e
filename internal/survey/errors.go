package survey

import (
	"fmt"
	"strings"
)

// SchemaError reports an expected column or question that is absent, renamed,
// or shaped differently from the instrument.
type SchemaError struct {
	Question string
	Column   string
	Message  string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema error")
	if e.Question != "" {
		b.WriteString(" [" + e.Question + "]")
	}
	if e.Column != "" {
		b.WriteString(fmt.Sprintf(" column %q", e.Column))
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

// EmptyDatasetError reports that no valid respondent rows survived filtering.
type EmptyDatasetError struct {
	Stage      string
	RowsBefore int
}

func (e *EmptyDatasetError) Error() string {
	if e.Stage == "" {
		return "empty dataset: no respondents"
	}
	return fmt.Sprintf("empty dataset after %s: %d rows in, 0 rows out", e.Stage, e.RowsBefore)
}

// ColumnNotFoundError reports a question id prefix that matched zero columns.
type ColumnNotFoundError struct {
	Question string
	Metric   string
}

func (e *ColumnNotFoundError) Error() string {
	if e.Metric != "" {
		return fmt.Sprintf("column not found: question %s (required by %s) matches no column", e.Question, e.Metric)
	}
	return fmt.Sprintf("column not found: question %s matches no column", e.Question)
}

// DataTypeError reports a cell whose value cannot be used as the required type.
// Row is the zero-based respondent index, or -1 when the error concerns the
// whole column.
type DataTypeError struct {
	Column   string
	Row      int
	Expected string
	Value    string
}

func (e *DataTypeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("data type error: column %q: expected %s", e.Column, e.Expected)
	}
	return fmt.Sprintf("data type error: column %q row %d: expected %s, got %q", e.Column, e.Row, e.Expected, e.Value)
}

// UnsupportedFormatError reports an upload whose extension cannot be read.
type UnsupportedFormatError struct {
	Name      string
	Supported []string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q (supported: %s)", e.Name, strings.Join(e.Supported, ", "))
}
