package shared

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseAmount converts a locale decimal such as "10,50" to a number.
// Only the first comma is treated as the decimal separator.
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return v, nil
}
