package view

import (
	"context"
	"fmt"
	"time"
)

const dbTimeout = 5 * time.Second

// FormatAmount formats minor currency units with a thousands separator.
func FormatAmount(amount int64) string {
	whole := amount / 100
	frac := amount % 100

	if frac < 0 {
		frac = -frac
	}

	return fmt.Sprintf("%s.%02d", groupThousands(whole), frac)
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)

	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}

	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}

	if neg {
		return "-" + s
	}

	return s
}

// FormatDate formats a time.Time into YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// DbCtx returns a context with a standard timeout for database operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}
