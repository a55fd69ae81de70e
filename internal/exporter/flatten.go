package exporter

import (
	"fmt"
	"strconv"

	"exitsurvey/internal/survey"
)

// Flatten turns an aggregate into a CSV header and rows.
//
// Series are written wide, one row per respondent and one column per entry.
// Histograms get one column per score plus the answered count and weighted
// mean.
func Flatten(result survey.AggregateResult) ([]string, [][]string, error) {
	switch r := result.(type) {
	case *survey.CategoryCounts:
		rows := make([][]string, 0, len(r.Items))
		for _, it := range r.Items {
			rows = append(rows, []string{formatLabel(it.Label), formatInt(it.Count)})
		}
		return []string{"label", "count"}, rows, nil

	case *survey.PerRespondentSeries:
		headers := []string{"respondent"}
		n := 0
		for _, e := range r.Entries {
			headers = append(headers, formatLabel(e.Label))
			n = max(n, len(e.Values))
		}
		rows := make([][]string, n)
		for i := range rows {
			row := []string{formatInt(i + 1)}
			for _, e := range r.Entries {
				cell := ""
				if i < len(e.Values) {
					cell = formatFloat(e.Values[i])
				}
				row = append(row, cell)
			}
			rows[i] = row
		}
		return headers, rows, nil

	case *survey.ScoreHistogramTable:
		headers := []string{"label"}
		for s := 1; s <= survey.MaxScore; s++ {
			headers = append(headers, strconv.Itoa(s))
		}
		headers = append(headers, "answered", "weighted_mean")
		rows := make([][]string, 0, len(r.Rows))
		for _, h := range r.Rows {
			row := []string{formatLabel(h.Label)}
			for _, c := range h.Counts {
				row = append(row, formatInt(c))
			}
			row = append(row, formatInt(h.Answered()), formatFloat(h.WeightedMean()))
			rows = append(rows, row)
		}
		return headers, rows, nil

	case *survey.NpsComparison:
		rows := make([][]string, 0, len(r.Entries))
		for _, e := range r.Entries {
			rows = append(rows, []string{
				formatLabel(e.Label), formatInt(e.Score), string(e.Band), e.Color, formatBool(e.Highlighted),
			})
		}
		return []string{"label", "score", "band", "color", "highlighted"}, rows, nil

	case *survey.ScalarIndex:
		return []string{"label", "value"}, [][]string{{formatLabel(r.Label), formatFloat(r.Value)}}, nil
	}
	return nil, nil, fmt.Errorf("unsupported result type %T", result)
}
