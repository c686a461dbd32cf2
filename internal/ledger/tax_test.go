package ledger

import (
	"testing"

	"aegis/internal/model"

	"github.com/stretchr/testify/require"
)

func TestComputeTax(t *testing.T) {
	l := New(DefaultConfig())
	asOf := onDay("2025-06-15")

	t.Run("empty log yields zero report", func(t *testing.T) {
		report, err := l.ComputeTax(nil, asOf)
		require.NoError(t, err)
		require.True(t, report.RealizedKRW.IsZero())
		require.True(t, report.EstimatedTaxKRW.IsZero())
		require.Empty(t, report.Gains)
		require.True(t, report.RemainingAllowance.Equal(dec("2500000")))
	})

	t.Run("average cost sale", func(t *testing.T) {
		report, err := l.ComputeTax([]model.TradeEvent{
			{Date: onDay("2025-01-10"), Ticker: "QQQM", Action: model.TradeBuy, Qty: dec("10"), Price: dec("100"), Rate: dec("1400")},
			{Date: onDay("2025-02-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("4"), Price: dec("120"), Rate: dec("1400")},
		}, asOf)
		require.NoError(t, err)

		// 4*120*1400 - 4*(10*100*1400/10) = 672000 - 560000
		require.True(t, report.RealizedKRW.Equal(dec("112000")), "realized = %s", report.RealizedKRW)
		require.Len(t, report.Gains, 1)
		require.Equal(t, "QQQM", report.Gains[0].Ticker)

		lot := report.Lots["QQQM"]
		require.True(t, lot.QtyHeld.Equal(dec("6")))
		require.True(t, lot.TotalCostKRW.Equal(dec("840000")), "lot cost = %s", lot.TotalCostKRW)
	})

	t.Run("fees priced at the event's own rate", func(t *testing.T) {
		report, err := l.ComputeTax([]model.TradeEvent{
			{Date: onDay("2025-01-10"), Ticker: "SPYM", Action: model.TradeBuy, Qty: dec("10"), Price: dec("100"), Fee: dec("1"), Rate: dec("1400")},
			{Date: onDay("2025-02-10"), Ticker: "SPYM", Action: model.TradeSell, Qty: dec("10"), Price: dec("110"), Fee: dec("1"), Rate: dec("1500")},
		}, asOf)
		require.NoError(t, err)

		// revenue 10*110*1500 - 1*1500 = 1648500, basis 10*100*1400 + 1*1400 = 1401400
		require.True(t, report.RealizedKRW.Equal(dec("247100")), "realized = %s", report.RealizedKRW)
	})

	t.Run("only asOf year gains are collected", func(t *testing.T) {
		report, err := l.ComputeTax([]model.TradeEvent{
			{Date: onDay("2024-01-10"), Ticker: "QQQM", Action: model.TradeBuy, Qty: dec("10"), Price: dec("100"), Rate: dec("1400")},
			{Date: onDay("2024-06-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("4"), Price: dec("120"), Rate: dec("1400")},
			{Date: onDay("2025-02-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("2"), Price: dec("130"), Rate: dec("1400")},
		}, asOf)
		require.NoError(t, err)

		// prior-year sale still consumed its share of the lot, only the
		// 2025 sale lands in the report: 2*130*1400 - 2*140000 = 84000
		require.Len(t, report.Gains, 1)
		require.True(t, report.RealizedKRW.Equal(dec("84000")), "realized = %s", report.RealizedKRW)
	})

	t.Run("dividends do not touch lots", func(t *testing.T) {
		report, err := l.ComputeTax([]model.TradeEvent{
			{Date: onDay("2025-01-10"), Ticker: "SGOV", Action: model.TradeBuy, Qty: dec("10"), Price: dec("100"), Rate: dec("1400")},
			{Date: onDay("2025-02-10"), Ticker: "SGOV", Action: model.TradeDividend, Qty: dec("1"), Price: dec("5"), Rate: dec("1400")},
		}, asOf)
		require.NoError(t, err)

		require.True(t, report.RealizedKRW.IsZero())
		require.True(t, report.Lots["SGOV"].QtyHeld.Equal(dec("10")))
	})

	t.Run("tickers are independent", func(t *testing.T) {
		report, err := l.ComputeTax([]model.TradeEvent{
			{Date: onDay("2025-01-10"), Ticker: "QQQM", Action: model.TradeBuy, Qty: dec("10"), Price: dec("100"), Rate: dec("1400")},
			{Date: onDay("2025-01-10"), Ticker: "SPYM", Action: model.TradeBuy, Qty: dec("5"), Price: dec("200"), Rate: dec("1400")},
			{Date: onDay("2025-02-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("10"), Price: dec("110"), Rate: dec("1400")},
		}, asOf)
		require.NoError(t, err)

		require.True(t, report.Lots["SPYM"].QtyHeld.Equal(dec("5")))
		require.True(t, report.Lots["QQQM"].QtyHeld.IsZero())
	})

	t.Run("oversell drives the lot negative", func(t *testing.T) {
		report, err := l.ComputeTax([]model.TradeEvent{
			{Date: onDay("2025-01-10"), Ticker: "QQQM", Action: model.TradeBuy, Qty: dec("10"), Price: dec("100"), Rate: dec("1400")},
			{Date: onDay("2025-02-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("12"), Price: dec("100"), Rate: dec("1400")},
		}, asOf)
		require.NoError(t, err)
		require.True(t, report.Lots["QQQM"].QtyHeld.Equal(dec("-2")))
	})

	t.Run("sell with no holdings is skipped", func(t *testing.T) {
		report, err := l.ComputeTax([]model.TradeEvent{
			{Date: onDay("2025-02-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("5"), Price: dec("100"), Rate: dec("1400")},
		}, asOf)
		require.NoError(t, err)
		require.True(t, report.RealizedKRW.IsZero())
		require.Empty(t, report.Gains)
	})
}

func TestComputeTaxAllowanceBoundary(t *testing.T) {
	l := New(DefaultConfig())
	asOf := onDay("2025-06-15")

	// buy at zero cost so realized profit equals the sale revenue exactly
	events := func(revenueKRW string) []model.TradeEvent {
		return []model.TradeEvent{
			{Date: onDay("2025-01-10"), Ticker: "QQQM", Action: model.TradeBuy, Qty: dec("1"), Price: dec("0"), Rate: dec("1000")},
			{Date: onDay("2025-02-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("1"), Price: dec(revenueKRW), Rate: dec("1")},
		}
	}

	t.Run("exactly at allowance", func(t *testing.T) {
		report, err := l.ComputeTax(events("2500000"), asOf)
		require.NoError(t, err)
		require.True(t, report.EstimatedTaxKRW.IsZero())
		require.True(t, report.RemainingAllowance.IsZero())
	})

	t.Run("above allowance", func(t *testing.T) {
		report, err := l.ComputeTax(events("2600000"), asOf)
		require.NoError(t, err)
		// (2600000 - 2500000) * 0.22
		require.True(t, report.EstimatedTaxKRW.Equal(dec("22000")), "tax = %s", report.EstimatedTaxKRW)
	})

	t.Run("below allowance", func(t *testing.T) {
		report, err := l.ComputeTax(events("1000000"), asOf)
		require.NoError(t, err)
		require.True(t, report.EstimatedTaxKRW.IsZero())
		require.True(t, report.RemainingAllowance.Equal(dec("1500000")))
	})
}

func TestComputeTaxStrictMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictUnderflow = true
	l := New(cfg)

	_, err := l.ComputeTax([]model.TradeEvent{
		{Date: onDay("2025-01-10"), Ticker: "QQQM", Action: model.TradeBuy, Qty: dec("10"), Price: dec("100"), Rate: dec("1400")},
		{Date: onDay("2025-02-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("12"), Price: dec("100"), Rate: dec("1400")},
	}, onDay("2025-06-15"))
	require.ErrorIs(t, err, ErrUnderflow)
}
