package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Answer values arrive as whatever JSON produced: strings, float64 numbers,
// bools, or []any selections. The helpers below define the one coercion
// policy shared by the evaluator, validator, and scoring engine.

// ToFloat coerces an answer value to a number.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ToString coerces an answer value to its display form. Whole-number floats
// render without a decimal point so "3" and 3.0 compare equal.
func ToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprint(v)
	}
}

// ToSlice reports whether the value is a sequence and returns its elements.
func ToSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	case []float64:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, true
	default:
		return nil, false
	}
}

// LooseEqual compares two answer values, numerically when both sides
// coerce to numbers, otherwise by string form.
func LooseEqual(a, b any) bool {
	if fa, ok := ToFloat(a); ok {
		if fb, ok := ToFloat(b); ok {
			return fa == fb
		}
	}
	return ToString(a) == ToString(b)
}

// IsEmpty reports whether a value counts as "no answer": nil, a string that
// is blank after trimming, or an empty sequence.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	if seq, ok := ToSlice(v); ok {
		return len(seq) == 0
	}
	return false
}
