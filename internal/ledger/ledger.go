// Package ledger replays the two append-only event logs (cash movements and
// security trades) into derived state: wallet balances, holdings, the
// weighted-average exchange cost basis, realized capital gains and a daily
// history series. Every result is recomputed from the full log on each call,
// so balances stay consistent with the ledger even after rows are deleted or
// edited upstream. The package is pure: no I/O, no clock, no shared state.
package ledger

import (
	"errors"
	"sort"
	"time"

	"aegis/internal/model"

	"github.com/shopspring/decimal"
)

// ErrUnderflow is returned in strict mode when a sell or reverse exchange
// exceeds what is held. With strict mode off such events are clamped or
// allowed to go negative, matching the permissive source behavior.
var ErrUnderflow = errors.New("error operation exceeds held amount")

type Config struct {
	// ResetEpsilonUSD is the residual below which the USD principal is
	// considered fully unwound and the cost basis snaps back to zero.
	ResetEpsilonUSD decimal.Decimal
	// TaxAllowanceKRW is the annual realized-gain allowance.
	TaxAllowanceKRW decimal.Decimal
	// TaxRate applies to realized gains above the allowance.
	TaxRate         decimal.Decimal
	StrictUnderflow bool
}

func DefaultConfig() Config {
	return Config{
		ResetEpsilonUSD: decimal.NewFromFloat(0.1),
		TaxAllowanceKRW: decimal.NewFromInt(2_500_000),
		TaxRate:         decimal.NewFromFloat(0.22),
	}
}

type Ledger struct {
	cfg Config
}

func New(cfg Config) *Ledger {
	return &Ledger{cfg: cfg}
}

// day truncates t to calendar-day granularity in UTC.
func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// sortCashEvents returns a copy ordered by date ascending. The sort is
// stable, so same-day events keep their insertion order.
func sortCashEvents(events []model.CashEvent) []model.CashEvent {
	sorted := append([]model.CashEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return day(sorted[i].Date).Before(day(sorted[j].Date))
	})
	return sorted
}

func sortTradeEvents(events []model.TradeEvent) []model.TradeEvent {
	sorted := append([]model.TradeEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return day(sorted[i].Date).Before(day(sorted[j].Date))
	})
	return sorted
}
