package exporter

import (
	"fmt"
	"math"
	"strings"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal
// places. NaN is written as an empty cell.
func formatFloat(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}

// formatBool formats a boolean value for CSV output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

var labelReplacer = strings.NewReplacer("<br>", " ", "\n", " ")

// formatLabel flattens the line breaks chart labels carry.
func formatLabel(s string) string {
	return strings.Join(strings.Fields(labelReplacer.Replace(s)), " ")
}
