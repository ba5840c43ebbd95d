package engine

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// reNumber is plain decimal notation with an optional exponent. It rules out
// the extra spellings strconv accepts (Inf, NaN, hex, underscores).
var reNumber = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][+-]?\d+)?$`)

// ParseNumber parses a raw cell value. Surrounding whitespace is ignored.
func ParseNumber(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if !reNumber.MatchString(s) {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, fmt.Errorf("number out of range: %q", raw)
	}
	return v, nil
}
