package survey

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// CSILabel is the label of the headline satisfaction index.
const CSILabel = "Общее значение CSI"

// Extractor computes aggregates from a canonical table. It only reads the
// table, so one Extractor may serve concurrent callers.
type Extractor struct {
	table    *Table
	inst     *Instrument
	registry *Registry
	logger   *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithLogger sets the extractor's logger.
func WithLogger(l *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRegistry replaces the registry derived from the instrument.
func WithRegistry(r *Registry) ExtractorOption {
	return func(e *Extractor) {
		if r != nil {
			e.registry = r
		}
	}
}

// NewExtractor returns an extractor over table.
func NewExtractor(table *Table, inst *Instrument, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		table:    table,
		inst:     inst,
		registry: NewRegistry(inst),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.logger = e.logger.With(slog.String("component", "extractor"))
	return e
}

// Table returns the table the extractor reads.
func (e *Extractor) Table() *Table { return e.table }

// Instrument returns the instrument the extractor was built with.
func (e *Extractor) Instrument() *Instrument { return e.inst }

// Registry returns the question registry in use.
func (e *Extractor) Registry() *Registry { return e.registry }

// AgeDistribution counts respondents per age bracket.
func (e *Extractor) AgeDistribution() (*CategoryCounts, error) {
	cols, err := e.registry.Columns(e.table, QuestionAge, "age distribution")
	if err != nil {
		return nil, err
	}
	col := cols[0]
	for _, c := range cols {
		if c == e.inst.AgeColumn {
			col = c
		}
	}
	return e.codeCounts(col, e.inst.AgeCodes)
}

// IndustryDistribution counts respondents per industry using the first
// integer-coded industry column.
func (e *Extractor) IndustryDistribution() (*CategoryCounts, error) {
	cols, err := e.registry.Columns(e.table, QuestionIndustry, "industry distribution")
	if err != nil {
		return nil, err
	}
	for _, c := range cols {
		if e.integerColumn(c, false) {
			return e.codeCounts(c, e.inst.IndustryCodes)
		}
	}
	return nil, &DataTypeError{Column: cols[0], Row: -1, Expected: "an integer-coded industry column"}
}

// JobFunctionDistribution sums each multi-select job column and returns the
// positive totals in descending order.
func (e *Extractor) JobFunctionDistribution() (*CategoryCounts, error) {
	q, _ := e.registry.Spec(QuestionJobFunction)
	cols, err := e.registry.Columns(e.table, QuestionJobFunction, "job function distribution")
	if err != nil {
		return nil, err
	}
	out := &CategoryCounts{Question: q.ID}
	found := false
	for _, c := range cols {
		if !e.integerColumn(c, true) {
			continue
		}
		found = true
		values, _ := e.table.Column(c)
		sum := 0
		for _, v := range values {
			n, _ := v.Int()
			sum += n
		}
		if sum > 0 {
			out.Items = append(out.Items, CategoryCount{Label: questionText(c, q.ID), Count: sum})
		}
	}
	if !found {
		return nil, &DataTypeError{Column: cols[0], Row: -1, Expected: "integer-valued job function columns"}
	}
	sort.SliceStable(out.Items, func(i, j int) bool { return out.Items[i].Count > out.Items[j].Count })
	return out, nil
}

// OverallSatisfaction averages each satisfaction block row-wise.
func (e *Extractor) OverallSatisfaction() (*PerRespondentSeries, error) {
	out := &PerRespondentSeries{Question: "CSI"}
	for _, b := range e.inst.Satisfaction {
		cols, err := resolve(e.table, QuestionSpec{ID: b.Question}, "overall satisfaction")
		if err != nil {
			return nil, err
		}
		block := make([]series.Series, len(cols))
		for k, c := range cols {
			values, err := e.numericSeries(c)
			if err != nil {
				return nil, err
			}
			block[k] = series.New(values, series.Float, c)
		}
		values, err := rowMeans(block, e.table.Len())
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, SeriesEntry{Label: b.Label, Values: values})
	}
	return out, nil
}

// rowMeans averages the present values of each row across block. Rows with
// no answers in the block yield NaN.
func rowMeans(block []series.Series, n int) ([]float64, error) {
	if n == 0 {
		return []float64{}, nil
	}
	means := dataframe.New(block...).Rapply(func(row series.Series) series.Series {
		sum, k := 0.0, 0
		for _, f := range row.Float() {
			if !math.IsNaN(f) {
				sum += f
				k++
			}
		}
		if k == 0 {
			return series.Floats([]float64{math.NaN()})
		}
		return series.Floats([]float64{sum / float64(k)})
	})
	if means.Err != nil {
		return nil, fmt.Errorf("row means: %w", means.Err)
	}
	out := make([]float64, means.Nrow())
	for i := range out {
		out[i] = means.Elem(i, 0).Float()
	}
	return out, nil
}

// SatisfactionIndex is the unweighted mean of the per-block means of blocks.
func (e *Extractor) SatisfactionIndex(blocks *PerRespondentSeries) (*ScalarIndex, error) {
	return SatisfactionIndex(blocks)
}

// SatisfactionIndex computes the two-level mean: each entry is averaged over
// its present values, then the entry means are averaged with equal weight.
func SatisfactionIndex(blocks *PerRespondentSeries) (*ScalarIndex, error) {
	sum, n := 0.0, 0
	if blocks != nil {
		for _, entry := range blocks.Entries {
			if m := entry.Mean(); !math.IsNaN(m) {
				sum += m
				n++
			}
		}
	}
	if n == 0 {
		return nil, &EmptyDatasetError{Stage: "satisfaction index"}
	}
	return &ScalarIndex{Label: CSILabel, Value: sum / float64(n)}, nil
}

// ProgramRatings returns the raw program-level ratings.
func (e *Extractor) ProgramRatings() (*PerRespondentSeries, error) {
	return e.ratingSeries(QuestionProgram, "program ratings")
}

// DesignRatings returns the raw programme design ratings.
func (e *Extractor) DesignRatings() (*PerRespondentSeries, error) {
	return e.ratingSeries(QuestionDesign, "design ratings")
}

// InternationalModuleRatings returns the raw international module ratings.
func (e *Extractor) InternationalModuleRatings() (*PerRespondentSeries, error) {
	return e.ratingSeries(QuestionInternational, "international module ratings")
}

// SupportRatings returns the raw programme team ratings.
func (e *Extractor) SupportRatings() (*PerRespondentSeries, error) {
	return e.ratingSeries(QuestionSupport, "support ratings")
}

// GroupRatings returns the raw cohort quality ratings.
func (e *Extractor) GroupRatings() (*PerRespondentSeries, error) {
	return e.ratingSeries(QuestionGroup, "group ratings")
}

// NetPromoterScore is round(100 * (promoters - detractors) / respondents).
// Every respondent counts toward the total, answered or not.
func (e *Extractor) NetPromoterScore() (int, error) {
	cols, err := resolve(e.table, QuestionSpec{ID: e.inst.NPS.Question}, "net promoter score")
	if err != nil {
		return 0, err
	}
	values, err := e.numericSeries(cols[0])
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, &EmptyDatasetError{Stage: "net promoter score"}
	}
	promoters, detractors := 0, 0
	for _, v := range values {
		switch {
		case math.IsNaN(v):
		case v >= e.inst.NPS.PromoterMin:
			promoters++
		case v <= e.inst.NPS.DetractorMax:
			detractors++
		}
	}
	return int(math.Round(100 * float64(promoters-detractors) / float64(len(values)))), nil
}

// IndustryNPS compares the local NPS with industry benchmarks.
func (e *Extractor) IndustryNPS() (*NpsComparison, error) {
	return e.comparison("industry")
}

// ProgramsNPS compares the local NPS with other programmes of the school.
func (e *Extractor) ProgramsNPS() (*NpsComparison, error) {
	return e.comparison("programs")
}

// Comparison builds the NPS comparison registered under key.
func (e *Extractor) Comparison(key string) (*NpsComparison, error) {
	return e.comparison(key)
}

// LearningOutcomes counts ratings 1..10 for each learning outcome. Zero
// buckets are kept.
func (e *Extractor) LearningOutcomes() (*ScoreHistogramTable, error) {
	q, _ := e.registry.Spec(QuestionOutcomes)
	cols, labels, err := e.registry.LabeledColumns(e.table, QuestionOutcomes, "learning outcomes")
	if err != nil {
		return nil, err
	}
	out := &ScoreHistogramTable{Question: q.ID, Rows: make([]HistogramRow, len(cols))}
	for k, c := range cols {
		row := HistogramRow{Label: labelAt(labels, k, c)}
		values, _ := e.table.Column(c)
		for i, v := range values {
			if v.IsBlank() {
				continue
			}
			score, ok := v.Int()
			if !ok || score < 1 || score > MaxScore {
				return nil, &DataTypeError{Column: c, Row: i, Expected: "integer rating 1-10", Value: v.String()}
			}
			row.Counts[score-1]++
		}
		out.Rows[k] = row
	}
	return out, nil
}

// TopLecturers tallies lecturer votes. Respondents who picked nobody are
// counted under the instrument's none label.
func (e *Extractor) TopLecturers() (*CategoryCounts, error) {
	q, _ := e.registry.Spec(QuestionLecturers)
	cols, err := e.registry.Columns(e.table, QuestionLecturers, "top lecturers")
	if err != nil {
		return nil, err
	}
	tally := make(map[string]int)
	none := 0
	for i := 0; i < e.table.Len(); i++ {
		picked := false
		for _, c := range cols {
			v := e.table.At(i, c)
			if e.unselected(v) {
				continue
			}
			picked = true
			tally[v.String()]++
		}
		if !picked {
			none++
		}
	}
	tally[e.inst.NoneLabel] += none

	out := &CategoryCounts{Question: q.ID}
	for label, n := range tally {
		out.Items = append(out.Items, CategoryCount{Label: label, Count: n})
	}
	sort.Slice(out.Items, func(i, j int) bool {
		a, b := out.Items[i], out.Items[j]
		if a.Count != b.Count {
			return a.Count < b.Count
		}
		return a.Label < b.Label
	})
	return out, nil
}

// CollaborationPreferences tallies how many alumni agreed to each kind of
// collaboration, plus a derived count of those who agreed to none.
func (e *Extractor) CollaborationPreferences() (*CategoryCounts, error) {
	q, _ := e.registry.Spec(QuestionCollaboration)
	cols, labels, err := e.registry.LabeledColumns(e.table, QuestionCollaboration, "collaboration preferences")
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(cols))
	declined := 0
	for i := 0; i < e.table.Len(); i++ {
		agreedAny := false
		for k, c := range cols {
			if e.agreed(e.table.At(i, c)) {
				counts[k]++
				agreedAny = true
			}
		}
		if !agreedAny {
			declined++
		}
	}

	out := &CategoryCounts{Question: q.ID}
	for k, c := range cols {
		out.Items = append(out.Items, CategoryCount{Label: labelAt(labels, k, c), Count: counts[k]})
	}
	out.Items = append(out.Items, CategoryCount{Label: e.inst.DeclinedLabel, Count: declined})
	sort.SliceStable(out.Items, func(i, j int) bool { return out.Items[i].Count < out.Items[j].Count })
	return out, nil
}

func (e *Extractor) codeCounts(col string, codes []CodeLabel) (*CategoryCounts, error) {
	values, _ := e.table.Column(col)
	labels := make(map[float64]string, len(codes))
	for _, c := range codes {
		labels[float64(c.Code)] = c.Label
	}

	tally := make(map[float64]int)
	for i, v := range values {
		if v.IsBlank() {
			continue
		}
		f, ok := v.Float()
		if !ok {
			return nil, &DataTypeError{Column: col, Row: i, Expected: "numeric code", Value: v.String()}
		}
		tally[f]++
	}

	keys := make([]float64, 0, len(tally))
	for k := range tally {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if tally[keys[i]] != tally[keys[j]] {
			return tally[keys[i]] > tally[keys[j]]
		}
		return keys[i] < keys[j]
	})

	out := &CategoryCounts{Question: questionID(col)}
	for _, k := range keys {
		label, ok := labels[k]
		if !ok {
			label = strconv.FormatFloat(k, 'f', -1, 64)
			e.logger.Warn("code has no label", slog.String("column", col), slog.String("code", label))
		}
		out.Items = append(out.Items, CategoryCount{Label: label, Count: tally[k]})
	}
	return out, nil
}

// integerColumn reports whether every present value of column c is a whole
// number. With complete set, missing values disqualify the column too.
func (e *Extractor) integerColumn(c string, complete bool) bool {
	values, _ := e.table.Column(c)
	present := 0
	for _, v := range values {
		if v.IsBlank() {
			if complete {
				return false
			}
			continue
		}
		if _, ok := v.Int(); !ok {
			return false
		}
		present++
	}
	return present > 0
}

// numericSeries returns column c as floats with NaN for missing cells.
func (e *Extractor) numericSeries(c string) ([]float64, error) {
	values, _ := e.table.Column(c)
	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case v.IsBlank():
			out[i] = math.NaN()
		case v.Kind == KindNumber:
			out[i] = v.Num
		default:
			return nil, &DataTypeError{Column: c, Row: i, Expected: "number", Value: v.String()}
		}
	}
	return out, nil
}

func (e *Extractor) ratingSeries(key, metric string) (*PerRespondentSeries, error) {
	q, _ := e.registry.Spec(key)
	cols, labels, err := e.registry.LabeledColumns(e.table, key, metric)
	if err != nil {
		return nil, err
	}
	out := &PerRespondentSeries{Question: q.ID}
	for k, c := range cols {
		values, err := e.numericSeries(c)
		if err != nil {
			return nil, err
		}
		out.Entries = append(out.Entries, SeriesEntry{Label: labelAt(labels, k, c), Values: values})
	}
	return out, nil
}

func (e *Extractor) comparison(key string) (*NpsComparison, error) {
	spec, ok := e.inst.Comparison(key)
	if !ok {
		return nil, &SchemaError{Question: e.inst.NPS.Question, Message: "no NPS comparison named " + key}
	}
	local, err := e.NetPromoterScore()
	if err != nil {
		return nil, err
	}
	out := &NpsComparison{Key: spec.Key, Title: spec.Title, Entries: make([]NpsEntry, len(spec.Benchmarks))}
	for i, b := range spec.Benchmarks {
		entry := NpsEntry{Label: b.Label, Color: e.inst.NPS.BaseColor}
		if b.Score == nil {
			entry.Score = local
			entry.Color = e.inst.NPS.HighlightColor
			entry.Highlighted = true
		} else {
			entry.Score = *b.Score
		}
		entry.Band = Band(entry.Score)
		out.Entries[i] = entry
	}
	return out, nil
}

func (e *Extractor) unselected(v Value) bool {
	switch v.Kind {
	case KindEmpty:
		return true
	case KindNumber:
		return v.Num == 0
	default:
		s := strings.TrimSpace(v.Str)
		return s == "" || s == e.inst.NoneLabel
	}
}

func (e *Extractor) agreed(v Value) bool {
	switch v.Kind {
	case KindNumber:
		return v.Num != 0
	case KindText:
		s := strings.TrimSpace(v.Str)
		return s != "" && s != e.inst.NoCommentLabel
	default:
		return false
	}
}

func labelAt(labels []string, k int, fallback string) string {
	if k < len(labels) {
		return labels[k]
	}
	return fallback
}

// questionID returns the leading id token of a column name.
func questionID(column string) string {
	if i := strings.IndexAny(column, " \t"); i > 0 {
		return column[:i]
	}
	return column
}

// questionText strips the id token and any leading dash from a column name.
func questionText(column, id string) string {
	rest := strings.TrimPrefix(column, questionID(column))
	rest = strings.TrimLeft(rest, " \t-")
	if rest == "" {
		return id
	}
	return strings.TrimSpace(rest)
}
