package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type WalletBalance struct {
	KRW decimal.Decimal
	USD decimal.Decimal
}

// CostBasis is the weighted-average cost of the USD currently held.
// AvgRate is zero when no USD is held - callers must treat that as
// "no basis", not as a rate of zero.
type CostBasis struct {
	AvgRate      decimal.Decimal // KRW per USD
	USDPrincipal decimal.Decimal
	KRWPrincipal decimal.Decimal
}

type TaxLot struct {
	QtyHeld      decimal.Decimal
	TotalCostKRW decimal.Decimal
}

type RealizedGain struct {
	Date      time.Time
	Ticker    string
	ProfitKRW decimal.Decimal
}

type TaxReport struct {
	Year               int
	RealizedKRW        decimal.Decimal
	Gains              []RealizedGain
	Lots               map[string]TaxLot
	EstimatedTaxKRW    decimal.Decimal
	RemainingAllowance decimal.Decimal
}

type DailySnapshot struct {
	Date        time.Time
	KRW         decimal.Decimal
	USD         decimal.Decimal
	Holdings    map[string]decimal.Decimal
	NetDeposits decimal.Decimal // cumulative deposits minus withdrawals, KRW
}
