package report

import "fmt"

// UnknownMetricError is returned for a section or metric name the report
// does not define.
type UnknownMetricError struct {
	Name string
}

func (e *UnknownMetricError) Error() string {
	return fmt.Sprintf("unknown metric %q", e.Name)
}
