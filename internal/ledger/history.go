package ledger

import (
	"time"

	"aegis/internal/model"

	"github.com/shopspring/decimal"
)

// Reconstruct replays both logs day by day from the earliest event date
// through asOf inclusive and emits one snapshot per calendar day. Days
// without events carry the previous state forward, so the series is dense
// and charts render continuous lines. Each day applies that day's cash
// events first, then its trade events. The final snapshot always agrees
// with Project over the full logs.
func (l *Ledger) Reconstruct(cashEvents []model.CashEvent, tradeEvents []model.TradeEvent, asOf time.Time) []model.DailySnapshot {
	if len(cashEvents) == 0 && len(tradeEvents) == 0 {
		return nil
	}

	cashByDay := make(map[time.Time][]model.CashEvent)
	var start time.Time
	for _, e := range sortCashEvents(cashEvents) {
		d := day(e.Date)
		cashByDay[d] = append(cashByDay[d], e)
		if start.IsZero() || d.Before(start) {
			start = d
		}
	}

	tradesByDay := make(map[time.Time][]model.TradeEvent)
	for _, e := range sortTradeEvents(tradeEvents) {
		d := day(e.Date)
		tradesByDay[d] = append(tradesByDay[d], e)
		if start.IsZero() || d.Before(start) {
			start = d
		}
	}

	end := day(asOf)
	if end.Before(start) {
		end = start
	}

	krw := decimal.Zero
	usd := decimal.Zero
	netDeposits := decimal.Zero
	holdings := make(map[string]decimal.Decimal)

	snapshots := make([]model.DailySnapshot, 0, int(end.Sub(start)/(24*time.Hour))+1)

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, e := range cashByDay[d] {
			switch e.Kind {
			case model.CashDeposit:
				krw = krw.Add(e.AmountKRW)
				netDeposits = netDeposits.Add(e.AmountKRW)
			case model.CashWithdraw:
				krw = krw.Sub(e.AmountKRW)
				netDeposits = netDeposits.Sub(e.AmountKRW)
			case model.CashExchangeToUSD:
				krw = krw.Sub(e.AmountKRW)
				usd = usd.Add(e.AmountUSD)
			case model.CashExchangeToKRW:
				krw = krw.Add(e.AmountKRW)
				usd = usd.Sub(e.AmountUSD)
			}
		}

		for _, e := range tradesByDay[d] {
			switch e.Action {
			case model.TradeBuy:
				usd = usd.Sub(e.Qty.Mul(e.Price).Add(e.Fee))
				holdings[e.Ticker] = holdings[e.Ticker].Add(e.Qty)
			case model.TradeSell:
				usd = usd.Add(e.Qty.Mul(e.Price).Sub(e.Fee))
				holdings[e.Ticker] = holdings[e.Ticker].Sub(e.Qty)
			case model.TradeDividend:
				usd = usd.Add(e.Price.Sub(e.Fee))
			}
		}

		snapshot := model.DailySnapshot{
			Date:        d,
			KRW:         krw,
			USD:         usd,
			NetDeposits: netDeposits,
			Holdings:    make(map[string]decimal.Decimal, len(holdings)),
		}
		for ticker, qty := range holdings {
			snapshot.Holdings[ticker] = qty
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots
}
