package survey

import (
	"encoding/json"
	"math"
)

// ResultKind names an AggregateResult variant.
type ResultKind string

const (
	ResultCategoryCounts ResultKind = "category_counts"
	ResultSeries         ResultKind = "per_respondent_series"
	ResultHistogram      ResultKind = "score_histogram"
	ResultNPS            ResultKind = "nps_comparison"
	ResultScalar         ResultKind = "scalar_index"
)

// AggregateResult is the closed set of values an extraction can return.
// Results hold no reference to the table they were computed from.
type AggregateResult interface {
	Kind() ResultKind
	aggregate()
}

// CategoryCount is one labeled tally.
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CategoryCounts is an ordered list of tallies.
type CategoryCounts struct {
	Question string          `json:"question"`
	Items    []CategoryCount `json:"items"`
}

func (*CategoryCounts) Kind() ResultKind { return ResultCategoryCounts }
func (*CategoryCounts) aggregate()       {}

// Total sums all counts.
func (c *CategoryCounts) Total() int {
	n := 0
	for _, it := range c.Items {
		n += it.Count
	}
	return n
}

// Count returns the tally for label.
func (c *CategoryCounts) Count(label string) (int, bool) {
	for _, it := range c.Items {
		if it.Label == label {
			return it.Count, true
		}
	}
	return 0, false
}

func (c *CategoryCounts) MarshalJSON() ([]byte, error) {
	type plain CategoryCounts
	return json.Marshal(struct {
		Kind ResultKind `json:"kind"`
		*plain
		Total int `json:"total"`
	}{c.Kind(), (*plain)(c), c.Total()})
}

// SeriesEntry holds one value per respondent in respondent order. A missing
// answer is NaN.
type SeriesEntry struct {
	Label  string
	Values []float64
}

// Mean averages the present values; NaN when there are none.
func (e SeriesEntry) Mean() float64 {
	sum, n := 0.0, 0
	for _, v := range e.Values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func (e SeriesEntry) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(e.Values))
	for i := range e.Values {
		if !math.IsNaN(e.Values[i]) {
			values[i] = &e.Values[i]
		}
	}
	return json.Marshal(struct {
		Label  string     `json:"label"`
		Values []*float64 `json:"values"`
		Mean   *float64   `json:"mean"`
	}{e.Label, values, finite(e.Mean())})
}

// PerRespondentSeries maps component labels to per-respondent values.
type PerRespondentSeries struct {
	Question string        `json:"question"`
	Entries  []SeriesEntry `json:"entries"`
}

func (*PerRespondentSeries) Kind() ResultKind { return ResultSeries }
func (*PerRespondentSeries) aggregate()       {}

// Entry returns the series stored under label.
func (s *PerRespondentSeries) Entry(label string) (SeriesEntry, bool) {
	for _, e := range s.Entries {
		if e.Label == label {
			return e, true
		}
	}
	return SeriesEntry{}, false
}

func (s *PerRespondentSeries) MarshalJSON() ([]byte, error) {
	type plain PerRespondentSeries
	return json.Marshal(struct {
		Kind ResultKind `json:"kind"`
		*plain
	}{s.Kind(), (*plain)(s)})
}

// MaxScore is the top of the rating scale; ratings run 1..MaxScore.
const MaxScore = 10

// HistogramRow counts ratings 1..10 for one dimension. Counts[i] is the
// number of respondents who gave rating i+1.
type HistogramRow struct {
	Label  string
	Counts [MaxScore]int
}

// Answered is the number of respondents who rated this dimension.
func (r HistogramRow) Answered() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// WeightedMean is the mean rating, NaN when nobody answered.
func (r HistogramRow) WeightedMean() float64 {
	n, sum := 0, 0
	for i, c := range r.Counts {
		n += c
		sum += c * (i + 1)
	}
	if n == 0 {
		return math.NaN()
	}
	return float64(sum) / float64(n)
}

func (r HistogramRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label        string        `json:"label"`
		Counts       [MaxScore]int `json:"counts"`
		Answered     int           `json:"answered"`
		WeightedMean *float64      `json:"weighted_mean"`
	}{r.Label, r.Counts, r.Answered(), finite(r.WeightedMean())})
}

// ScoreHistogramTable is one histogram row per rated dimension.
type ScoreHistogramTable struct {
	Question string         `json:"question"`
	Rows     []HistogramRow `json:"rows"`
}

func (*ScoreHistogramTable) Kind() ResultKind { return ResultHistogram }
func (*ScoreHistogramTable) aggregate()       {}

func (h *ScoreHistogramTable) MarshalJSON() ([]byte, error) {
	type plain ScoreHistogramTable
	return json.Marshal(struct {
		Kind ResultKind `json:"kind"`
		*plain
	}{h.Kind(), (*plain)(h)})
}

// NPSBand is the Bain classification of a score.
type NPSBand string

const (
	BandPoor       NPSBand = "poor"
	BandGood       NPSBand = "good"
	BandFavorable  NPSBand = "favorable"
	BandExcellent  NPSBand = "excellent"
	BandWorldClass NPSBand = "world_class"
)

// Band classifies an NPS value: below 0 poor, 0-20 good, 20-50 favorable,
// 50-80 excellent, 80 and above world class.
func Band(score int) NPSBand {
	switch {
	case score < 0:
		return BandPoor
	case score < 20:
		return BandGood
	case score < 50:
		return BandFavorable
	case score < 80:
		return BandExcellent
	default:
		return BandWorldClass
	}
}

// BandColor is the background color used for a band on comparison charts.
func BandColor(b NPSBand) string {
	switch b {
	case BandGood:
		return "#b2df8a"
	case BandFavorable:
		return "#66bb6a"
	case BandExcellent:
		return "#388e3c"
	case BandWorldClass:
		return "#1b5e20"
	default:
		return ""
	}
}

// NpsEntry is one bar of a comparison chart.
type NpsEntry struct {
	Label       string  `json:"label"`
	Score       int     `json:"score"`
	Color       string  `json:"color"`
	Highlighted bool    `json:"highlighted"`
	Band        NPSBand `json:"band"`
}

// NpsComparison places the local NPS among fixed benchmarks. Exactly one
// entry is highlighted.
type NpsComparison struct {
	Key     string     `json:"key"`
	Title   string     `json:"title"`
	Entries []NpsEntry `json:"entries"`
}

func (*NpsComparison) Kind() ResultKind { return ResultNPS }
func (*NpsComparison) aggregate()       {}

// Local returns the highlighted entry.
func (c *NpsComparison) Local() (NpsEntry, bool) {
	for _, e := range c.Entries {
		if e.Highlighted {
			return e, true
		}
	}
	return NpsEntry{}, false
}

func (c *NpsComparison) MarshalJSON() ([]byte, error) {
	type plain NpsComparison
	return json.Marshal(struct {
		Kind ResultKind `json:"kind"`
		*plain
	}{c.Kind(), (*plain)(c)})
}

// ScalarIndex is a single derived score.
type ScalarIndex struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

func (*ScalarIndex) Kind() ResultKind { return ResultScalar }
func (*ScalarIndex) aggregate()       {}

func (s *ScalarIndex) MarshalJSON() ([]byte, error) {
	type plain ScalarIndex
	return json.Marshal(struct {
		Kind ResultKind `json:"kind"`
		*plain
	}{s.Kind(), (*plain)(s)})
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
