package survey

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Kind classifies a cell value.
type Kind int

const (
	KindEmpty Kind = iota
	KindNumber
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return "empty"
	}
}

// Value is a single survey cell.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Empty is the missing value.
var Empty = Value{}

// Number returns a numeric cell.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text returns a text cell.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// ParseValue converts a raw spreadsheet string into a Value. Blank strings
// become Empty, numerals and TRUE/FALSE become numbers, anything else is text.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Empty
	}
	switch strings.ToUpper(s) {
	case "TRUE":
		return Number(1)
	case "FALSE":
		return Number(0)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Number(f)
	}
	return Text(raw)
}

// IsMissing reports whether the cell carries no answer.
func (v Value) IsMissing() bool {
	return v.Kind == KindEmpty
}

// IsBlank reports whether the cell is missing or whitespace-only text.
func (v Value) IsBlank() bool {
	return v.Kind == KindEmpty || (v.Kind == KindText && strings.TrimSpace(v.Str) == "")
}

// Float returns the numeric value and whether the cell is a number.
func (v Value) Float() (float64, bool) {
	return v.Num, v.Kind == KindNumber
}

// Int returns the value as an integer when it is a whole number.
func (v Value) Int() (int, bool) {
	if v.Kind != KindNumber || v.Num != math.Trunc(v.Num) {
		return 0, false
	}
	return int(v.Num), true
}

// String renders the value the way it would appear in an exported sheet.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as numbers, text as strings and missing as null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindText:
		return json.Marshal(v.Str)
	default:
		return []byte("null"), nil
	}
}
