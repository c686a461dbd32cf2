package ledger

import (
	"fmt"

	"aegis/internal/model"

	"github.com/shopspring/decimal"
)

// TrackCostBasis replays cash events in ascending date order and maintains
// the running weighted-average KRW/USD cost of the dollars held.
//
// A reverse exchange releases principal at the current average rate. Selling
// more USD than held is clamped (or rejected with ErrUnderflow in strict
// mode). Whenever the held principal drops to the reset epsilon or below,
// both principal fields snap to exactly zero so residual floating noise from
// a fully unwound position cannot contaminate the next cycle's average.
func (l *Ledger) TrackCostBasis(cashEvents []model.CashEvent) (model.CostBasis, error) {
	events := sortCashEvents(cashEvents)

	usdHeld := decimal.Zero
	krwSpent := decimal.Zero

	for _, e := range events {
		switch e.Kind {
		case model.CashExchangeToUSD:
			usdHeld = usdHeld.Add(e.AmountUSD)
			krwSpent = krwSpent.Add(e.AmountKRW)
		case model.CashExchangeToKRW:
			if usdHeld.LessThanOrEqual(l.cfg.ResetEpsilonUSD) {
				continue // nothing held, no basis to release
			}

			avg := krwSpent.Div(usdHeld)

			sold := e.AmountUSD
			if sold.GreaterThan(usdHeld) {
				if l.cfg.StrictUnderflow {
					return model.CostBasis{}, fmt.Errorf("reverse exchange of %s USD with %s USD held: %w", e.AmountUSD, usdHeld, ErrUnderflow)
				}
				sold = usdHeld
			}

			usdHeld = usdHeld.Sub(sold)
			krwSpent = krwSpent.Sub(sold.Mul(avg))
		}

		if usdHeld.LessThanOrEqual(l.cfg.ResetEpsilonUSD) {
			usdHeld = decimal.Zero
			krwSpent = decimal.Zero
		}
	}

	basis := model.CostBasis{USDPrincipal: usdHeld, KRWPrincipal: krwSpent}
	if usdHeld.IsPositive() {
		basis.AvgRate = krwSpent.Div(usdHeld)
	}

	return basis, nil
}
