package survey

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/go-gota/gota/series"
)

// Normalizer turns a raw export into a canonical table.
type Normalizer struct {
	inst   *Instrument
	logger *slog.Logger
}

// NewNormalizer returns a normalizer for inst. A nil logger uses slog.Default.
func NewNormalizer(inst *Instrument, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{inst: inst, logger: logger.With(slog.String("component", "normalizer"))}
}

// Normalize prunes non-question columns, drops rows without a respondent and
// imputes missing values per column class. raw is left untouched.
func (n *Normalizer) Normalize(ctx context.Context, raw *Table) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := raw.selectColumns(n.keepColumn)
	if err != nil {
		return nil, err
	}
	if err := n.checkSchema(t); err != nil {
		return nil, err
	}

	rowsIn := t.Len()
	t, err = t.filterRows(t.index[n.inst.RespondentColumn], answered)
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, &EmptyDatasetError{Stage: "respondent filtering", RowsBefore: rowsIn}
	}

	if q, ok := n.inst.Question(QuestionLecturers); ok {
		for _, c := range n.groupColumns(t, q.ID) {
			if err := fillMissing(t, c, Text(n.inst.NoneLabel)); err != nil {
				return nil, err
			}
		}
	}

	age := t.index[n.inst.AgeColumn]
	median, err := columnMedian(t, age)
	if err != nil {
		return nil, err
	}
	if err := fillMissing(t, age, Number(median)); err != nil {
		return nil, err
	}

	for _, group := range n.inst.RatingGroups {
		for _, c := range n.groupColumns(t, group) {
			mean, err := columnMean(t, c)
			if err != nil {
				return nil, err
			}
			if err := fillMissing(t, c, Number(math.Trunc(mean))); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range n.inst.FreeText {
		c, ok := t.index[name]
		if !ok {
			n.logger.WarnContext(ctx, "free-text column not present, skipping",
				slog.String("column", name))
			continue
		}
		if err := fillMissing(t, c, Text(n.inst.NoCommentLabel)); err != nil {
			return nil, err
		}
	}

	out := t
	n.logger.InfoContext(ctx, "survey normalized",
		slog.String("instrument", n.inst.Version),
		slog.Int("columns_in", raw.Width()),
		slog.Int("columns_out", out.Width()),
		slog.Int("rows_in", rowsIn),
		slog.Int("rows_out", out.Len()))
	return out, nil
}

func (n *Normalizer) keepColumn(name string) bool {
	for _, p := range n.inst.ServicePrefixes {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	for _, d := range n.inst.DroppedColumns {
		if name == d {
			return false
		}
	}
	return n.inst.IsQuestionColumn(name)
}

func (n *Normalizer) checkSchema(t *Table) error {
	if !t.HasColumn(n.inst.RespondentColumn) {
		return &SchemaError{Column: n.inst.RespondentColumn, Message: "respondent column is missing"}
	}
	if !t.HasColumn(n.inst.AgeColumn) {
		return &SchemaError{Column: n.inst.AgeColumn, Message: "age column is missing"}
	}
	for _, g := range n.inst.RatingGroups {
		if len(n.groupColumns(t, g)) == 0 {
			return &SchemaError{Question: g, Message: "rating question has no columns"}
		}
	}
	return nil
}

func (n *Normalizer) groupColumns(t *Table, id string) []int {
	var out []int
	for i, c := range t.names {
		if MatchesQuestion(c, id) {
			out = append(out, i)
		}
	}
	return out
}

// answered reports whether a respondent cell holds a non-blank answer.
func answered(e series.Element) bool {
	return !e.IsNA() && strings.TrimSpace(e.String()) != ""
}

func fillMissing(t *Table, c int, with Value) error {
	values := t.columnAt(c)
	changed := false
	for i, v := range values {
		if v.IsMissing() {
			values[i] = with
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return t.replaceColumn(c, values)
}

// presentNumbers collects the non-missing values of column c as a Float
// series, failing on text.
func presentNumbers(t *Table, c int) (series.Series, error) {
	var nums []float64
	for i, cell := range t.columnAt(c) {
		switch {
		case cell.IsMissing():
		case cell.Kind == KindNumber:
			nums = append(nums, cell.Num)
		default:
			return series.Series{}, &DataTypeError{Column: t.names[c], Row: i, Expected: "number", Value: cell.String()}
		}
	}
	if len(nums) == 0 {
		return series.Series{}, &DataTypeError{Column: t.names[c], Row: -1, Expected: "at least one numeric value to impute from"}
	}
	return series.Floats(nums), nil
}

func columnMedian(t *Table, c int) (float64, error) {
	nums, err := presentNumbers(t, c)
	if err != nil {
		return 0, err
	}
	return nums.Median(), nil
}

func columnMean(t *Table, c int) (float64, error) {
	nums, err := presentNumbers(t, c)
	if err != nil {
		return 0, err
	}
	return nums.Mean(), nil
}
