// Package price normalizes locale-ambiguous price strings.
package price

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseError reports a price string that could not be normalized.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse price %q: %s", e.Input, e.Reason)
}

// Parse converts a raw numeric string extracted from a page into a
// price value. Adapters cannot know the page locale up front, so the
// separator roles are inferred from the string itself:
//
//   - both "." and "," present: the one occurring last is the decimal
//     separator ("1.234,56" and "1,234.56" both yield 1234.56)
//   - a single separator followed by 1-2 trailing digits is decimal
//     ("26,00" -> 26), otherwise it groups thousands ("1.234" -> 1234)
func Parse(raw string) (float64, error) {
	cleaned := strings.Join(strings.Fields(raw), "")
	if cleaned == "" {
		return 0, &ParseError{Input: raw, Reason: "empty input"}
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")

	var normalized string
	switch {
	case hasDot && hasComma:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			// European format: dot groups thousands, comma is decimal.
			normalized = strings.ReplaceAll(cleaned, ".", "")
			normalized = strings.Replace(normalized, ",", ".", 1)
		} else {
			// US format: comma groups thousands.
			normalized = strings.ReplaceAll(cleaned, ",", "")
		}
	case hasComma:
		normalized = normalizeSingle(cleaned, ",")
	case hasDot:
		normalized = normalizeSingle(cleaned, ".")
	default:
		normalized = cleaned
	}

	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, &ParseError{Input: raw, Reason: "not a number"}
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, &ParseError{Input: raw, Reason: "not a finite number"}
	}
	return value, nil
}

// normalizeSingle decides whether the only separator present is decimal
// or a thousands grouper.
func normalizeSingle(s, sep string) string {
	parts := strings.Split(s, sep)
	if len(parts) == 2 && len(parts[1]) >= 1 && len(parts[1]) <= 2 {
		return strings.Replace(s, sep, ".", 1)
	}
	return strings.ReplaceAll(s, sep, "")
}
