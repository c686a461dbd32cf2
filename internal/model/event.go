package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashEventKind string

const (
	CashDeposit       CashEventKind = "DEPOSIT"
	CashWithdraw      CashEventKind = "WITHDRAW"
	CashExchangeToUSD CashEventKind = "EXCHANGE"
	CashExchangeToKRW CashEventKind = "EXCHANGE_USD_TO_KRW"
)

type TradeAction string

const (
	TradeBuy      TradeAction = "BUY"
	TradeSell     TradeAction = "SELL"
	TradeDividend TradeAction = "DIVIDEND"
)

// CashEvent is a single append-only record of a cash movement.
// For exchanges the producer fills both amounts (AmountUSD = AmountKRW / Rate),
// the ledger never re-derives one from the other.
type CashEvent struct {
	Date      time.Time
	Kind      CashEventKind
	AmountKRW decimal.Decimal
	AmountUSD decimal.Decimal
	Rate      decimal.Decimal
}

// TradeEvent is a single append-only record of a security transaction.
// Rate is the KRW/USD rate recorded when the event was appended, it is
// never refetched afterwards.
type TradeEvent struct {
	Date   time.Time
	Ticker string
	Action TradeAction
	Qty    decimal.Decimal // forced to 1 for dividends
	Price  decimal.Decimal // unit price for BUY/SELL, total payout for DIVIDEND
	Fee    decimal.Decimal
	Rate   decimal.Decimal
}
