package grading

import (
	"math"
	"strconv"
	"strings"
)

// numericEqual treats "3", "3.0" and " 3.00 " as the same answer. Both sides
// must parse as numbers.
func numericEqual(want, got string) bool {
	a, ok := parseNumber(want)
	if !ok {
		return false
	}
	b, ok := parseNumber(got)
	if !ok {
		return false
	}
	tol := 1e-9 * math.Max(1, math.Abs(a))
	return math.Abs(a-b) <= tol
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
