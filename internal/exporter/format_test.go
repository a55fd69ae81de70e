package exporter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{13.4, "13.40"},
		{8, "8.00"},
		{2.0 / 3.0, "0.67"},
		{math.NaN(), ""},
		{math.Inf(1), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFloat(tt.in))
	}
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "Общая оценка программы (Q2)", formatLabel("Общая оценка<br>программы (Q2)"))
	assert.Equal(t, "Поддержка и взаимопомощь", formatLabel("Поддержка\nи взаимопомощь"))
	assert.Equal(t, "plain", formatLabel("plain"))
	assert.Equal(t, "true", formatBool(true))
	assert.Equal(t, "42", formatInt(42))
}
