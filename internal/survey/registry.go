package survey

import (
	"errors"
	"fmt"
	"sort"
)

// Registry resolves instrument questions to table columns. It is the single
// place that applies the column naming convention, so schema drift surfaces
// here instead of as a miscount somewhere downstream.
type Registry struct {
	specs map[string]QuestionSpec
	keys  []string
}

// NewRegistry indexes the questions of inst.
func NewRegistry(inst *Instrument) *Registry {
	r := &Registry{specs: make(map[string]QuestionSpec, len(inst.Questions))}
	for k, q := range inst.Questions {
		r.specs[k] = q
		r.keys = append(r.keys, k)
	}
	sort.Strings(r.keys)
	return r
}

// Spec returns the question registered under key.
func (r *Registry) Spec(key string) (QuestionSpec, bool) {
	q, ok := r.specs[key]
	return q, ok
}

// Keys returns the registered question keys in sorted order.
func (r *Registry) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Columns returns the columns of t that belong to the question registered
// under key. metric names the caller for error reporting.
func (r *Registry) Columns(t *Table, key, metric string) ([]string, error) {
	q, ok := r.specs[key]
	if !ok {
		return nil, &SchemaError{Question: key, Message: "question is not registered in the instrument"}
	}
	return resolve(t, q, metric)
}

// LabeledColumns is Columns plus the check that the matched columns line up
// with the configured labels.
func (r *Registry) LabeledColumns(t *Table, key, metric string) ([]string, []string, error) {
	q, ok := r.specs[key]
	if !ok {
		return nil, nil, &SchemaError{Question: key, Message: "question is not registered in the instrument"}
	}
	cols, err := resolve(t, q, metric)
	if err != nil {
		return nil, nil, err
	}
	if len(q.Labels) > 0 && len(q.Labels) != len(cols) {
		return nil, nil, &SchemaError{
			Question: q.ID,
			Message:  fmt.Sprintf("%d columns matched, instrument defines %d labels", len(cols), len(q.Labels)),
		}
	}
	return cols, q.Labels, nil
}

// Validate checks every registered question against t and reports all
// mismatches at once.
func (r *Registry) Validate(t *Table) error {
	var errs []error
	for _, k := range r.keys {
		q := r.specs[k]
		cols := t.QuestionColumns(q.ID, q.Exclude...)
		switch {
		case len(cols) == 0:
			errs = append(errs, &SchemaError{Question: q.ID, Message: "no matching columns"})
		case len(q.Labels) > 0 && len(q.Labels) != len(cols):
			errs = append(errs, &SchemaError{
				Question: q.ID,
				Message:  fmt.Sprintf("%d columns matched, instrument defines %d labels", len(cols), len(q.Labels)),
			})
		}
	}
	return errors.Join(errs...)
}

func resolve(t *Table, q QuestionSpec, metric string) ([]string, error) {
	cols := t.QuestionColumns(q.ID, q.Exclude...)
	if len(cols) == 0 {
		return nil, &ColumnNotFoundError{Question: q.ID, Metric: metric}
	}
	return cols, nil
}
