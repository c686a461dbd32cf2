package ledger

import (
	"testing"

	"aegis/internal/model"

	"github.com/stretchr/testify/require"
)

func TestTrackCostBasis(t *testing.T) {
	l := New(DefaultConfig())

	t.Run("empty log yields no basis", func(t *testing.T) {
		basis, err := l.TrackCostBasis(nil)
		require.NoError(t, err)
		require.True(t, basis.AvgRate.IsZero())
		require.True(t, basis.USDPrincipal.IsZero())
		require.True(t, basis.KRWPrincipal.IsZero())
	})

	t.Run("weighted average across exchanges", func(t *testing.T) {
		basis, err := l.TrackCostBasis([]model.CashEvent{
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
			{Date: onDay("2025-02-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("150000"), AmountUSD: dec("100"), Rate: dec("1500")},
		})
		require.NoError(t, err)
		require.True(t, basis.USDPrincipal.Equal(dec("200")))
		require.True(t, basis.KRWPrincipal.Equal(dec("290000")))
		require.True(t, basis.AvgRate.Equal(dec("1450")), "avg = %s", basis.AvgRate)
	})

	t.Run("full unwind resets to exact zero", func(t *testing.T) {
		basis, err := l.TrackCostBasis([]model.CashEvent{
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("100000"), AmountUSD: dec("70"), Rate: dec("1428.57")},
			{Date: onDay("2025-01-20"), Kind: model.CashExchangeToKRW, AmountKRW: dec("100000"), AmountUSD: dec("70"), Rate: dec("1428.57")},
		})
		require.NoError(t, err)
		require.True(t, basis.USDPrincipal.IsZero())
		require.True(t, basis.KRWPrincipal.IsZero())
		require.True(t, basis.AvgRate.IsZero())
	})

	t.Run("new cycle starts clean after unwind", func(t *testing.T) {
		basis, err := l.TrackCostBasis([]model.CashEvent{
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("100000"), AmountUSD: dec("70"), Rate: dec("1428.57")},
			{Date: onDay("2025-01-20"), Kind: model.CashExchangeToKRW, AmountKRW: dec("100000"), AmountUSD: dec("70"), Rate: dec("1428.57")},
			{Date: onDay("2025-02-01"), Kind: model.CashExchangeToUSD, AmountKRW: dec("50000"), AmountUSD: dec("35"), Rate: dec("1428.57")},
		})
		require.NoError(t, err)
		require.True(t, basis.USDPrincipal.Equal(dec("35")))
		require.True(t, basis.KRWPrincipal.Equal(dec("50000")))
		// 50000/35, no contamination from the earlier cycle
		require.Equal(t, "1428.57", basis.AvgRate.Round(2).String())
	})

	t.Run("residual below epsilon resets", func(t *testing.T) {
		basis, err := l.TrackCostBasis([]model.CashEvent{
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
			{Date: onDay("2025-01-20"), Kind: model.CashExchangeToKRW, AmountKRW: dec("139930"), AmountUSD: dec("99.95"), Rate: dec("1400")},
		})
		require.NoError(t, err)
		require.True(t, basis.USDPrincipal.IsZero(), "0.05 USD residual must snap to zero")
		require.True(t, basis.KRWPrincipal.IsZero())
	})

	t.Run("over-reverse-exchange is clamped", func(t *testing.T) {
		basis, err := l.TrackCostBasis([]model.CashEvent{
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
			{Date: onDay("2025-01-20"), Kind: model.CashExchangeToKRW, AmountKRW: dec("210000"), AmountUSD: dec("150"), Rate: dec("1400")},
		})
		require.NoError(t, err)
		require.True(t, basis.USDPrincipal.IsZero())
		require.True(t, basis.KRWPrincipal.IsZero())
	})

	t.Run("reverse exchange with nothing held is a no-op", func(t *testing.T) {
		basis, err := l.TrackCostBasis([]model.CashEvent{
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToKRW, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
		})
		require.NoError(t, err)
		require.True(t, basis.USDPrincipal.IsZero())
		require.True(t, basis.KRWPrincipal.IsZero())
	})

	t.Run("deposits and withdrawals do not touch the basis", func(t *testing.T) {
		basis, err := l.TrackCostBasis([]model.CashEvent{
			{Date: onDay("2025-01-02"), Kind: model.CashDeposit, AmountKRW: dec("1000000")},
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
			{Date: onDay("2025-01-15"), Kind: model.CashWithdraw, AmountKRW: dec("500000")},
		})
		require.NoError(t, err)
		require.True(t, basis.AvgRate.Equal(dec("1400")))
	})

	t.Run("same-day events keep insertion order", func(t *testing.T) {
		basis, err := l.TrackCostBasis([]model.CashEvent{
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
			{Date: onDay("2025-01-10"), Kind: model.CashExchangeToKRW, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
		})
		require.NoError(t, err)
		require.True(t, basis.USDPrincipal.IsZero())
	})
}

func TestTrackCostBasisStrictMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StrictUnderflow = true
	l := New(cfg)

	_, err := l.TrackCostBasis([]model.CashEvent{
		{Date: onDay("2025-01-10"), Kind: model.CashExchangeToUSD, AmountKRW: dec("140000"), AmountUSD: dec("100"), Rate: dec("1400")},
		{Date: onDay("2025-01-20"), Kind: model.CashExchangeToKRW, AmountKRW: dec("210000"), AmountUSD: dec("150"), Rate: dec("1400")},
	})
	require.ErrorIs(t, err, ErrUnderflow)
}
