package ledger

import (
	"fmt"
	"time"

	"aegis/internal/model"
)

// ComputeTax replays trade events in ascending date order, keeping one
// average-cost tax lot per ticker. Each sale realizes
// qty*price*rate - fee*rate minus the proportional average buy cost; gains
// whose sale date falls in asOf's calendar year are collected into the
// report. Every event values itself at its own recorded rate.
//
// Selling into an empty lot is skipped (no basis to realize against) and an
// oversell drives the lot negative unless strict mode rejects it. Dividends
// never touch the lots.
func (l *Ledger) ComputeTax(tradeEvents []model.TradeEvent, asOf time.Time) (model.TaxReport, error) {
	events := sortTradeEvents(tradeEvents)
	year := asOf.Year()

	report := model.TaxReport{
		Year: year,
		Lots: make(map[string]model.TaxLot),
	}

	lots := make(map[string]*model.TaxLot)
	lotFor := func(ticker string) *model.TaxLot {
		lot, ok := lots[ticker]
		if !ok {
			lot = &model.TaxLot{}
			lots[ticker] = lot
		}
		return lot
	}

	for _, e := range events {
		switch e.Action {
		case model.TradeBuy:
			lot := lotFor(e.Ticker)
			cost := e.Qty.Mul(e.Price).Mul(e.Rate).Add(e.Fee.Mul(e.Rate))
			lot.QtyHeld = lot.QtyHeld.Add(e.Qty)
			lot.TotalCostKRW = lot.TotalCostKRW.Add(cost)

		case model.TradeSell:
			lot := lotFor(e.Ticker)
			if !lot.QtyHeld.IsPositive() {
				continue
			}

			if l.cfg.StrictUnderflow && e.Qty.GreaterThan(lot.QtyHeld) {
				return model.TaxReport{}, fmt.Errorf("sell of %s %s with %s held: %w", e.Qty, e.Ticker, lot.QtyHeld, ErrUnderflow)
			}

			avgCost := lot.TotalCostKRW.Div(lot.QtyHeld)
			buyCost := avgCost.Mul(e.Qty)
			revenue := e.Qty.Mul(e.Price).Mul(e.Rate).Sub(e.Fee.Mul(e.Rate))
			profit := revenue.Sub(buyCost)

			lot.QtyHeld = lot.QtyHeld.Sub(e.Qty)
			lot.TotalCostKRW = lot.TotalCostKRW.Sub(buyCost)

			if e.Date.Year() == year {
				report.Gains = append(report.Gains, model.RealizedGain{
					Date:      e.Date,
					Ticker:    e.Ticker,
					ProfitKRW: profit,
				})
				report.RealizedKRW = report.RealizedKRW.Add(profit)
			}
		}
	}

	for ticker, lot := range lots {
		report.Lots[ticker] = *lot
	}

	taxable := report.RealizedKRW.Sub(l.cfg.TaxAllowanceKRW)
	if taxable.IsPositive() {
		report.EstimatedTaxKRW = taxable.Mul(l.cfg.TaxRate)
	} else {
		remaining := l.cfg.TaxAllowanceKRW
		if report.RealizedKRW.IsPositive() {
			remaining = remaining.Sub(report.RealizedKRW)
		}
		report.RemainingAllowance = remaining
	}

	return report, nil
}
