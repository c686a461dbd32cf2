package model

import "github.com/shopspring/decimal"

// Position is a current holding valued at a live quote.
type Position struct {
	Ticker    string
	Qty       decimal.Decimal
	Price     decimal.Decimal
	ValueUSD  decimal.Decimal
	ChangePct decimal.Decimal
}

type PortfolioSummary struct {
	Balance       WalletBalance
	Positions     []Position
	TotalValueUSD decimal.Decimal
	SpotRate      decimal.Decimal
}

// BuyRecommendation is one line of the rebalance plan.
type BuyRecommendation struct {
	Ticker   string
	Qty      int64
	PriceUSD decimal.Decimal
	CostKRW  decimal.Decimal
}

// Advice is the advisor's daily verdict. Rendering is left to the
// transport converter; a zero Advice with Noteworthy() == false means
// silent mode.
type Advice struct {
	SpotRate decimal.Decimal
	AvgRate  decimal.Decimal
	GapRatio decimal.Decimal
	Balance  WalletBalance

	ExchangeChance    bool
	ExchangeAmountKRW decimal.Decimal

	DipAlert     bool
	DipChangePct decimal.Decimal
	BuyTicker    string
	BuyQty       int64

	IdleCash   bool
	ParkTicker string
	ParkQty    int64

	HighRateWarning bool
}

func (a Advice) Noteworthy() bool {
	return a.ExchangeChance || a.DipAlert || a.IdleCash || a.HighRateWarning
}

// TradeResult is what a freshly recorded trade returns to the bot.
// Underfunded flags a buy beyond the USD on hand or a sell beyond the
// shares held: the event is appended regardless, the bot only warns.
type TradeResult struct {
	Event       TradeEvent
	Balance     WalletBalance
	Underfunded bool
}

// LedgerReport aggregates everything the xlsx exporter renders.
type LedgerReport struct {
	CashEvents  []CashEvent
	TradeEvents []TradeEvent
	Balance     WalletBalance
	CostBasis   CostBasis
	Tax         TaxReport
	History     []DailySnapshot
}
