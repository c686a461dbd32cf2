package ledger

import (
	"testing"

	"aegis/internal/model"

	"github.com/stretchr/testify/require"
)

func TestReconstruct(t *testing.T) {
	l := New(DefaultConfig())

	t.Run("empty logs yield no snapshots", func(t *testing.T) {
		require.Nil(t, l.Reconstruct(nil, nil, onDay("2025-06-15")))
	})

	t.Run("dense daily series with quiet days carried forward", func(t *testing.T) {
		cash := []model.CashEvent{
			{Date: onDay("2025-01-01"), Kind: model.CashDeposit, AmountKRW: dec("1000000")},
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
		}

		snapshots := l.Reconstruct(cash, nil, onDay("2025-01-15"))
		require.Len(t, snapshots, 15, "one snapshot per calendar day, events or not")

		// quiet day between the two events carries state forward
		require.Equal(t, onDay("2025-01-05"), snapshots[4].Date)
		require.True(t, snapshots[4].KRW.Equal(dec("1000000")))
		require.True(t, snapshots[4].USD.IsZero())

		require.True(t, snapshots[9].KRW.Equal(dec("860000")))
		require.True(t, snapshots[9].USD.Equal(dec("100")))
		require.True(t, snapshots[14].USD.Equal(dec("100")))
	})

	t.Run("final snapshot agrees with Project", func(t *testing.T) {
		cash := testCashEvents()
		trades := testTradeEvents()

		snapshots := l.Reconstruct(cash, trades, onDay("2025-04-01"))
		require.NotEmpty(t, snapshots)

		want := l.Project(cash, trades)
		last := snapshots[len(snapshots)-1]
		require.True(t, last.KRW.Equal(want.KRW), "daily fold KRW %s vs direct fold %s", last.KRW, want.KRW)
		require.True(t, last.USD.Equal(want.USD), "daily fold USD %s vs direct fold %s", last.USD, want.USD)

		holdings := l.Holdings(trades)
		for ticker, qty := range holdings {
			require.True(t, last.Holdings[ticker].Equal(qty))
		}
	})

	t.Run("cash applies before trades on the same day", func(t *testing.T) {
		d := onDay("2025-01-10")
		cash := []model.CashEvent{
			{Date: d, Kind: model.CashExchangeToUSD, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
		}
		trades := []model.TradeEvent{
			{Date: d, Ticker: "QQQM", Action: model.TradeBuy, Qty: dec("1"), Price: dec("100"), Rate: dec("1400")},
		}

		snapshots := l.Reconstruct(cash, trades, d)
		require.Len(t, snapshots, 1)
		require.True(t, snapshots[0].USD.Equal(dec("0")), "exchange lands before the buy spends it")
		require.True(t, snapshots[0].Holdings["QQQM"].Equal(dec("1")))
	})

	t.Run("net deposits track principal only", func(t *testing.T) {
		cash := []model.CashEvent{
			{Date: onDay("2025-01-01"), Kind: model.CashDeposit, AmountKRW: dec("1000000")},
			{Date: onDay("2025-01-05"), Kind: model.CashExchangeToUSD, AmountKRW: dec("500000"), AmountUSD: dec("350"), Rate: dec("1428.57")},
			{Date: onDay("2025-01-10"), Kind: model.CashWithdraw, AmountKRW: dec("200000")},
		}

		snapshots := l.Reconstruct(cash, nil, onDay("2025-01-10"))
		last := snapshots[len(snapshots)-1]
		require.True(t, last.NetDeposits.Equal(dec("800000")), "exchanges must not move principal")
	})

	t.Run("asOf before last event still starts at first event", func(t *testing.T) {
		cash := []model.CashEvent{
			{Date: onDay("2025-01-10"), Kind: model.CashDeposit, AmountKRW: dec("1000000")},
		}
		snapshots := l.Reconstruct(cash, nil, onDay("2025-01-01"))
		require.Len(t, snapshots, 1)
		require.Equal(t, onDay("2025-01-10"), snapshots[0].Date)
	})
}
