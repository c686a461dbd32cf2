package ledger

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount coerces a raw numeric field into a decimal. Imported rows may
// carry thousands separators, currency symbols, blanks or plain garbage;
// anything unparsable degrades to zero with a warning instead of failing,
// so one bad row can never take a replay down.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "₩")
	s = strings.TrimPrefix(s, "$")

	if s == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		slog.Warn("unparsable amount, defaulting to zero", slog.String("raw", raw))
		return decimal.Zero
	}

	return d
}
