package ledger

import (
	"math/rand"
	"testing"
	"time"

	"aegis/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func onDay(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func testCashEvents() []model.CashEvent {
	return []model.CashEvent{
		{Date: onDay("2025-01-02"), Kind: model.CashDeposit, AmountKRW: dec("1000000")},
		{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("700000"), AmountUSD: dec("500"), Rate: dec("1400")},
		{Date: onDay("2025-02-01"), Kind: model.CashExchangeToKRW, AmountKRW: dec("145000"), AmountUSD: dec("100"), Rate: dec("1450")},
		{Date: onDay("2025-03-01"), Kind: model.CashWithdraw, AmountKRW: dec("50000")},
	}
}

func testTradeEvents() []model.TradeEvent {
	return []model.TradeEvent{
		{Date: onDay("2025-01-15"), Ticker: "QQQM", Action: model.TradeBuy, Qty: dec("2"), Price: dec("100"), Fee: dec("1"), Rate: dec("1400")},
		{Date: onDay("2025-02-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("1"), Price: dec("120"), Fee: dec("1"), Rate: dec("1450")},
		{Date: onDay("2025-02-20"), Ticker: "SGOV", Action: model.TradeDividend, Qty: dec("1"), Price: dec("3.5"), Fee: dec("0.5"), Rate: dec("1450")},
	}
}

func TestProject(t *testing.T) {
	l := New(DefaultConfig())

	t.Run("empty logs yield zero balance", func(t *testing.T) {
		b := l.Project(nil, nil)
		require.True(t, b.KRW.IsZero())
		require.True(t, b.USD.IsZero())
	})

	t.Run("folds both logs", func(t *testing.T) {
		b := l.Project(testCashEvents(), testTradeEvents())

		// 1000000 - 700000 + 145000 - 50000
		require.True(t, b.KRW.Equal(dec("395000")), "KRW = %s", b.KRW)
		// 500 - 100 - (2*100+1) + (1*120-1) + (3.5-0.5)
		require.True(t, b.USD.Equal(dec("321")), "USD = %s", b.USD)
	})

	t.Run("order independent", func(t *testing.T) {
		want := l.Project(testCashEvents(), testTradeEvents())

		rng := rand.New(rand.NewSource(1))
		for i := 0; i < 20; i++ {
			cash := testCashEvents()
			trades := testTradeEvents()
			rng.Shuffle(len(cash), func(a, b int) { cash[a], cash[b] = cash[b], cash[a] })
			rng.Shuffle(len(trades), func(a, b int) { trades[a], trades[b] = trades[b], trades[a] })

			got := l.Project(cash, trades)
			require.True(t, got.KRW.Equal(want.KRW))
			require.True(t, got.USD.Equal(want.USD))
		}
	})
}

func TestHoldings(t *testing.T) {
	l := New(DefaultConfig())

	holdings := l.Holdings(testTradeEvents())
	require.True(t, holdings["QQQM"].Equal(dec("1")))
	require.True(t, holdings["SGOV"].IsZero(), "dividends must not change share counts")
}
