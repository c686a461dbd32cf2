package ledgerService

import (
	"context"
	"errors"
	"testing"
	"time"

	"aegis/config"
	"aegis/internal/model"
	"aegis/internal/model/marketModel"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) AppendCashEvent(ctx context.Context, event model.CashEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRepository) AppendTradeEvent(ctx context.Context, event model.TradeEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRepository) GetCashEvents(ctx context.Context) ([]model.CashEvent, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.CashEvent), args.Error(1)
}

func (m *MockRepository) GetTradeEvents(ctx context.Context) ([]model.TradeEvent, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.TradeEvent), args.Error(1)
}

func (m *MockRepository) DeleteEventsFromDate(ctx context.Context, from time.Time) (int64, error) {
	args := m.Called(ctx, from)
	return args.Get(0).(int64), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetQuote(ctx context.Context, ticker string) (marketModel.Quote, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(marketModel.Quote), args.Error(1)
}

func (m *MockCache) SetQuote(ctx context.Context, quote marketModel.Quote) error {
	args := m.Called(ctx, quote)
	return args.Error(0)
}

type MockMarketApi struct {
	mock.Mock
}

func (m *MockMarketApi) GetQuote(ctx context.Context, ticker string) (marketModel.Quote, error) {
	args := m.Called(ctx, ticker)
	return args.Get(0).(marketModel.Quote), args.Error(1)
}

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

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.API.MarketApi.FxTicker = "KRW=X"
	cfg.API.MarketApi.FallbackFxRate = dec("1450")
	cfg.Ledger.ResetEpsilonUSD = dec("0.1")
	cfg.Ledger.TaxAllowanceKRW = dec("2500000")
	cfg.Ledger.TaxRate = dec("0.22")
	cfg.Advisor.GapRatioThreshold = dec("0.985")
	cfg.Advisor.MinIdleKRW = dec("100000")
	cfg.Advisor.ExchangeFraction = dec("0.5")
	cfg.Advisor.IdleUSDThreshold = dec("500")
	cfg.Advisor.DipChangePct = dec("-2.0")
	cfg.Advisor.HighRateKRW = dec("1460")
	cfg.Advisor.WatchTicker = "QQQM"
	cfg.Advisor.ParkTicker = "SGOV"
	cfg.Advisor.TargetRatios = map[string]float64{"SGOV": 0.30, "SPYM": 0.35, "QQQM": 0.35}
	return cfg
}

// newService wires a service over mocks; cache always misses so every quote
// comes from the market mock.
func newService(repo *MockRepository, api *MockMarketApi) *LedgerService {
	cache := new(MockCache)
	cache.On("GetQuote", mock.Anything, mock.Anything).Return(marketModel.Quote{}, errors.New("cache miss")).Maybe()
	cache.On("SetQuote", mock.Anything, mock.Anything).Return(nil).Maybe()

	return New(testConfig(), repo, cache, api, nil, nil)
}

func fxQuote(price string) marketModel.Quote {
	return marketModel.Quote{Ticker: "KRW=X", Price: dec(price)}
}

func TestRecordDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects non-positive amount", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newService(repo, new(MockMarketApi))

		_, err := svc.RecordDeposit(ctx, onDay("2025-05-01"), dec("0"))
		require.Error(t, err)
		repo.AssertNotCalled(t, "AppendCashEvent")
	})

	t.Run("appends and returns replayed balance", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newService(repo, new(MockMarketApi))

		deposited := model.CashEvent{Date: onDay("2025-05-01"), Kind: model.CashDeposit, AmountKRW: dec("500000")}
		repo.On("AppendCashEvent", mock.Anything, deposited).Return(nil).Once()
		repo.On("GetCashEvents", mock.Anything).Return([]model.CashEvent{deposited}, nil)
		repo.On("GetTradeEvents", mock.Anything).Return([]model.TradeEvent{}, nil)

		balance, err := svc.RecordDeposit(ctx, onDay("2025-05-01"), dec("500000"))
		require.NoError(t, err)
		require.True(t, balance.KRW.Equal(dec("500000")), "KRW = %s", balance.KRW)
		repo.AssertExpectations(t)
	})
}

func TestRecordExchange(t *testing.T) {
	ctx := context.Background()

	t.Run("derives USD side from rate", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newService(repo, new(MockMarketApi))

		repo.On("AppendCashEvent", mock.Anything, mock.Anything).Return(nil).Once()

		event, err := svc.RecordExchange(ctx, onDay("2025-05-01"), dec("1450000"), dec("1450"))
		require.NoError(t, err)
		require.True(t, event.AmountUSD.Equal(dec("1000")), "USD = %s", event.AmountUSD)
		repo.AssertExpectations(t)
	})

	t.Run("rejects zero rate", func(t *testing.T) {
		repo := new(MockRepository)
		svc := newService(repo, new(MockMarketApi))

		_, err := svc.RecordExchange(ctx, onDay("2025-05-01"), dec("1450000"), dec("0"))
		require.Error(t, err)
		repo.AssertNotCalled(t, "AppendCashEvent")
	})
}

func TestRecordTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("buy beyond USD on hand is recorded but flagged", func(t *testing.T) {
		repo := new(MockRepository)
		api := new(MockMarketApi)
		svc := newService(repo, api)

		funded := model.CashEvent{Date: onDay("2025-05-01"), Kind: model.CashExchangeToUSD, AmountKRW: dec("145000"), AmountUSD: dec("100"), Rate: dec("1450")}
		repo.On("GetCashEvents", mock.Anything).Return([]model.CashEvent{funded}, nil)
		repo.On("GetTradeEvents", mock.Anything).Return([]model.TradeEvent{}, nil)
		repo.On("AppendTradeEvent", mock.Anything, mock.Anything).Return(nil).Once()
		api.On("GetQuote", mock.Anything, "KRW=X").Return(fxQuote("1430"), nil)

		result, err := svc.RecordTrade(ctx, onDay("2025-05-02"), "QQQM", model.TradeBuy, dec("2"), dec("100"), dec("1"))
		require.NoError(t, err)
		require.True(t, result.Underfunded)
		require.True(t, result.Event.Rate.Equal(dec("1430")), "rate = %s", result.Event.Rate)
		// 100 - 201
		require.True(t, result.Balance.USD.Equal(dec("-101")), "USD = %s", result.Balance.USD)
		repo.AssertExpectations(t)
	})

	t.Run("dividend qty is forced to one", func(t *testing.T) {
		repo := new(MockRepository)
		api := new(MockMarketApi)
		svc := newService(repo, api)

		repo.On("GetCashEvents", mock.Anything).Return([]model.CashEvent{}, nil)
		repo.On("GetTradeEvents", mock.Anything).Return([]model.TradeEvent{}, nil)
		repo.On("AppendTradeEvent", mock.Anything, mock.MatchedBy(func(e model.TradeEvent) bool {
			return e.Qty.Equal(decimal.NewFromInt(1)) && e.Action == model.TradeDividend
		})).Return(nil).Once()
		api.On("GetQuote", mock.Anything, "KRW=X").Return(fxQuote("1430"), nil)

		_, err := svc.RecordTrade(ctx, onDay("2025-05-02"), "SGOV", model.TradeDividend, dec("7"), dec("12.34"), decimal.Zero)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("falls back to default rate on market failure", func(t *testing.T) {
		repo := new(MockRepository)
		api := new(MockMarketApi)
		svc := newService(repo, api)

		repo.On("GetCashEvents", mock.Anything).Return([]model.CashEvent{}, nil)
		repo.On("GetTradeEvents", mock.Anything).Return([]model.TradeEvent{}, nil)
		repo.On("AppendTradeEvent", mock.Anything, mock.Anything).Return(nil).Once()
		api.On("GetQuote", mock.Anything, "KRW=X").Return(marketModel.Quote{}, errors.New("down"))

		result, err := svc.RecordTrade(ctx, onDay("2025-05-02"), "QQQM", model.TradeBuy, dec("1"), dec("10"), decimal.Zero)
		require.NoError(t, err)
		require.True(t, result.Event.Rate.Equal(dec("1450")), "rate = %s", result.Event.Rate)
	})
}

func TestGetPortfolioSummary(t *testing.T) {
	ctx := context.Background()

	repo := new(MockRepository)
	api := new(MockMarketApi)
	svc := newService(repo, api)

	trades := []model.TradeEvent{
		{Date: onDay("2025-01-10"), Ticker: "QQQM", Action: model.TradeBuy, Qty: dec("5"), Price: dec("200"), Rate: dec("1400")},
		{Date: onDay("2025-02-10"), Ticker: "QQQM", Action: model.TradeSell, Qty: dec("5"), Price: dec("210"), Rate: dec("1410")},
		{Date: onDay("2025-03-10"), Ticker: "SGOV", Action: model.TradeBuy, Qty: dec("10"), Price: dec("100"), Rate: dec("1420")},
	}
	repo.On("GetCashEvents", mock.Anything).Return([]model.CashEvent{}, nil)
	repo.On("GetTradeEvents", mock.Anything).Return(trades, nil)
	api.On("GetQuote", mock.Anything, "KRW=X").Return(fxQuote("1430"), nil)
	api.On("GetQuote", mock.Anything, "SGOV").Return(marketModel.Quote{Ticker: "SGOV", Price: dec("100.5")}, nil)

	summary, err := svc.GetPortfolioSummary(ctx)
	require.NoError(t, err)

	// fully sold QQQM must not show up, so its quote is never fetched
	api.AssertNotCalled(t, "GetQuote", mock.Anything, "QQQM")
	require.Len(t, summary.Positions, 1)
	require.Equal(t, "SGOV", summary.Positions[0].Ticker)
	require.True(t, summary.TotalValueUSD.Equal(dec("1005")), "total = %s", summary.TotalValueUSD)
}
