// Package identity allocates integer record ids as max(existing)+1.
package identity

import (
	"math"
	"strconv"
	"strings"
)

// MaxID is the largest id Parse accepts.
const MaxID = math.MaxInt32

// Parse coerces a stored id value to an integer. Whole-number floats such as
// "7.0" are accepted because spreadsheet exports write ids that way once a
// column has gaps. Values outside the int32 range do not parse.
func Parse(value string) (int, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > MaxID || n < math.MinInt32 {
			return 0, false
		}
		return int(n), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > MaxID || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// Next returns one more than the largest numeric value, ignoring values that
// do not parse. An empty or fully non-numeric input yields 1.
func Next(values []string) int {
	ids := make([]int, 0, len(values))
	for _, v := range values {
		if n, ok := Parse(v); ok {
			ids = append(ids, n)
		}
	}
	return NextInt(ids)
}

// NextInt is Next over already-typed ids. Ids <= 0 encode "absent" and are
// skipped, as are ids that cannot be incremented without passing MaxID.
func NextInt(ids []int) int {
	highest := 0
	for _, id := range ids {
		if id >= MaxID {
			continue
		}
		if id > highest {
			highest = id
		}
	}
	return highest + 1
}
