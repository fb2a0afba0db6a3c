package erpcsv

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount parses a price string into minor currency units. Both
// European ("1.234,56") and plain ("1234.56") layouts appear in real
// exports; the last separator is taken as the decimal mark.
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	if lastComma > lastDot {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}

	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}
