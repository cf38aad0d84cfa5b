// Package core provides amount parsing and coercion.
//
// Stored values are always finite float64s: anything that cannot be read as
// a number degrades to 0 instead of failing the caller.
package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a human-entered amount to a float.
//
// It accepts dot (12.34) and comma (12,34) decimal separators, thousands
// separators when both are present (1,234.56), a leading sign and common
// currency symbols. A single comma followed by exactly three digits after a
// non-zero integer part is a thousands separator (1,234 is 1234, 0,125 is
// 0.125). Returns ErrInvalidAmount for anything else.
//
// Examples:
//
//	ParseAmount("12.34")     -> 12.34, nil
//	ParseAmount("12,34")     -> 12.34, nil
//	ParseAmount("1,234")     -> 1234, nil
//	ParseAmount("$1,200.50") -> 1200.5, nil
//	ParseAmount("abc")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", "€", "", "£", "", " ", "", "\u00a0", "").Replace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") || strings.Count(s, ",") > 1 || thousandsComma(s) {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// thousandsComma reports whether the only comma in s groups thousands.
func thousandsComma(s string) bool {
	i := strings.IndexByte(s, ',')
	whole := strings.TrimLeft(s[:i], "+-")
	frac := s[i+1:]
	if len(frac) != 3 || strings.TrimLeft(whole, "0") == "" {
		return false
	}
	return strings.Trim(whole+frac, "0123456789") == ""
}

// CoerceAmount is ParseAmount with unparsable input mapped to 0.
func CoerceAmount(s string) float64 {
	f, err := ParseAmount(s)
	if err != nil {
		return 0
	}
	return f
}

// CoerceFloat maps NaN and infinities to 0.
func CoerceFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// CoerceValue reads a loosely typed value (number, numeric string,
// json.Number, nil) as a finite float, defaulting to 0.
func CoerceValue(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return CoerceFloat(x)
	case float32:
		return CoerceFloat(float64(x))
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case json.Number:
		return CoerceAmount(x.String())
	case string:
		return CoerceAmount(x)
	default:
		return 0
	}
}

// CoerceJSON reads a raw JSON value that may be a number, a numeric string
// or null.
func CoerceJSON(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var v any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0
	}
	return CoerceValue(v)
}

// FormatAmount renders f in its shortest exact decimal form, e.g. "12.5".
func FormatAmount(f float64) string {
	return decimal.NewFromFloat(CoerceFloat(f)).String()
}
