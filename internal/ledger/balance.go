package ledger

import (
	"aegis/internal/model"

	"github.com/shopspring/decimal"
)

// Project folds both event logs into the current wallet balance. Unlike the
// cost basis, balances are order-independent sums: any permutation of the
// logs yields the same result. Empty logs yield (0, 0).
func (l *Ledger) Project(cashEvents []model.CashEvent, tradeEvents []model.TradeEvent) model.WalletBalance {
	var b model.WalletBalance

	for _, e := range cashEvents {
		switch e.Kind {
		case model.CashDeposit:
			b.KRW = b.KRW.Add(e.AmountKRW)
		case model.CashWithdraw:
			b.KRW = b.KRW.Sub(e.AmountKRW)
		case model.CashExchangeToUSD:
			b.KRW = b.KRW.Sub(e.AmountKRW)
			b.USD = b.USD.Add(e.AmountUSD)
		case model.CashExchangeToKRW:
			b.KRW = b.KRW.Add(e.AmountKRW)
			b.USD = b.USD.Sub(e.AmountUSD)
		}
	}

	for _, e := range tradeEvents {
		switch e.Action {
		case model.TradeBuy:
			b.USD = b.USD.Sub(e.Qty.Mul(e.Price).Add(e.Fee))
		case model.TradeSell:
			b.USD = b.USD.Add(e.Qty.Mul(e.Price).Sub(e.Fee))
		case model.TradeDividend:
			b.USD = b.USD.Add(e.Price.Sub(e.Fee))
		}
	}

	return b
}

// Holdings returns the current share count per ticker. Dividends do not
// change share counts.
func (l *Ledger) Holdings(tradeEvents []model.TradeEvent) map[string]decimal.Decimal {
	holdings := make(map[string]decimal.Decimal)

	for _, e := range tradeEvents {
		switch e.Action {
		case model.TradeBuy:
			holdings[e.Ticker] = holdings[e.Ticker].Add(e.Qty)
		case model.TradeSell:
			holdings[e.Ticker] = holdings[e.Ticker].Sub(e.Qty)
		}
	}

	return holdings
}
