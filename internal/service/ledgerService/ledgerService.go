package ledgerService

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"aegis/config"
	"aegis/internal/ledger"
	"aegis/internal/model"
	"aegis/internal/model/marketModel"
	"aegis/internal/service"
	"aegis/utils"
	"github.com/shopspring/decimal"
)

type Repository interface {
	AppendCashEvent(ctx context.Context, event model.CashEvent) error
	AppendTradeEvent(ctx context.Context, event model.TradeEvent) error
	GetCashEvents(ctx context.Context) ([]model.CashEvent, error)
	GetTradeEvents(ctx context.Context) ([]model.TradeEvent, error)
	DeleteEventsFromDate(ctx context.Context, from time.Time) (deleted int64, err error)
}

type Cache interface {
	GetQuote(ctx context.Context, ticker string) (marketModel.Quote, error)
	SetQuote(ctx context.Context, quote marketModel.Quote) error
}

type MarketApi interface {
	GetQuote(ctx context.Context, ticker string) (marketModel.Quote, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.LedgerReport) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
}

// LedgerService wires the pure ledger core to the event store and the
// market data shell. Every query re-reads the full logs and replays them,
// so results always reflect the ledger as stored, including manual edits.
type LedgerService struct {
	cfg             *config.Config
	core            *ledger.Ledger
	repo            Repository
	cache           Cache
	marketApi       MarketApi
	reportGenerator ReportGenerator
	cloudStorage    CloudStorage
}

func New(
	cfg *config.Config,
	repo Repository,
	cache Cache,
	marketApi MarketApi,
	reportGenerator ReportGenerator,
	cloudStorage CloudStorage,
) *LedgerService {
	core := ledger.New(ledger.Config{
		ResetEpsilonUSD: cfg.Ledger.ResetEpsilonUSD,
		TaxAllowanceKRW: cfg.Ledger.TaxAllowanceKRW,
		TaxRate:         cfg.Ledger.TaxRate,
		StrictUnderflow: cfg.Ledger.StrictUnderflow,
	})

	return &LedgerService{
		cfg:             cfg,
		core:            core,
		repo:            repo,
		cache:           cache,
		marketApi:       marketApi,
		reportGenerator: reportGenerator,
		cloudStorage:    cloudStorage,
	}
}

func (s *LedgerService) readEvents(ctx context.Context) ([]model.CashEvent, []model.TradeEvent, error) {
	cashEvents, err := s.repo.GetCashEvents(ctx)
	if err != nil {
		return nil, nil, err
	}

	tradeEvents, err := s.repo.GetTradeEvents(ctx)
	if err != nil {
		return nil, nil, err
	}

	return cashEvents, tradeEvents, nil
}

func (s *LedgerService) RecordDeposit(ctx context.Context, date time.Time, amountKRW decimal.Decimal) (model.WalletBalance, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.RecordDeposit"

	slog.Debug("RecordDeposit start", slog.String("rqID", rqID), slog.String("op", op), slog.String("amountKRW", amountKRW.String()))
	defer func() {
		slog.Debug("RecordDeposit finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !amountKRW.IsPositive() {
		return model.WalletBalance{}, service.ErrInvalidAmount
	}

	event := model.CashEvent{Date: date, Kind: model.CashDeposit, AmountKRW: amountKRW}
	if err := s.repo.AppendCashEvent(ctx, event); err != nil {
		slog.Error("got error from repo.AppendCashEvent", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.WalletBalance{}, err
	}

	return s.GetBalance(ctx)
}

func (s *LedgerService) RecordWithdraw(ctx context.Context, date time.Time, amountKRW decimal.Decimal) (model.WalletBalance, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.RecordWithdraw"

	slog.Debug("RecordWithdraw start", slog.String("rqID", rqID), slog.String("op", op), slog.String("amountKRW", amountKRW.String()))
	defer func() {
		slog.Debug("RecordWithdraw finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !amountKRW.IsPositive() {
		return model.WalletBalance{}, service.ErrInvalidAmount
	}

	event := model.CashEvent{Date: date, Kind: model.CashWithdraw, AmountKRW: amountKRW}
	if err := s.repo.AppendCashEvent(ctx, event); err != nil {
		slog.Error("got error from repo.AppendCashEvent", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.WalletBalance{}, err
	}

	return s.GetBalance(ctx)
}

// RecordExchange appends a KRW -> USD exchange. The producer fills both
// sides: amountUSD = amountKRW / rate at the moment of the exchange.
func (s *LedgerService) RecordExchange(ctx context.Context, date time.Time, amountKRW, rate decimal.Decimal) (model.CashEvent, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.RecordExchange"

	slog.Debug("RecordExchange start", slog.String("rqID", rqID), slog.String("op", op), slog.String("amountKRW", amountKRW.String()), slog.String("rate", rate.String()))
	defer func() {
		slog.Debug("RecordExchange finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !amountKRW.IsPositive() {
		return model.CashEvent{}, service.ErrInvalidAmount
	}
	if !rate.IsPositive() {
		return model.CashEvent{}, service.ErrInvalidRate
	}

	event := model.CashEvent{
		Date:      date,
		Kind:      model.CashExchangeToUSD,
		AmountKRW: amountKRW,
		AmountUSD: amountKRW.Div(rate).Round(2),
		Rate:      rate,
	}

	if err := s.repo.AppendCashEvent(ctx, event); err != nil {
		slog.Error("got error from repo.AppendCashEvent", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CashEvent{}, err
	}

	return event, nil
}

// RecordExchangeAtSpot is RecordExchange with the rate taken from the
// market, for one-tap confirmations of advisor suggestions.
func (s *LedgerService) RecordExchangeAtSpot(ctx context.Context, date time.Time, amountKRW decimal.Decimal) (model.CashEvent, error) {
	return s.RecordExchange(ctx, date, amountKRW, s.getSpotRate(ctx))
}

func (s *LedgerService) RecordReverseExchange(ctx context.Context, date time.Time, amountUSD, rate decimal.Decimal) (model.CashEvent, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.RecordReverseExchange"

	slog.Debug("RecordReverseExchange start", slog.String("rqID", rqID), slog.String("op", op), slog.String("amountUSD", amountUSD.String()), slog.String("rate", rate.String()))
	defer func() {
		slog.Debug("RecordReverseExchange finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !amountUSD.IsPositive() {
		return model.CashEvent{}, service.ErrInvalidAmount
	}
	if !rate.IsPositive() {
		return model.CashEvent{}, service.ErrInvalidRate
	}

	event := model.CashEvent{
		Date:      date,
		Kind:      model.CashExchangeToKRW,
		AmountKRW: amountUSD.Mul(rate).Round(0),
		AmountUSD: amountUSD,
		Rate:      rate,
	}

	if err := s.repo.AppendCashEvent(ctx, event); err != nil {
		slog.Error("got error from repo.AppendCashEvent", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.CashEvent{}, err
	}

	return event, nil
}

// RecordTrade appends a trade valued at the current spot rate. The rate is
// stored on the event and never refetched. A buy that exceeds the USD on
// hand (or a sell exceeding the shares held) is appended anyway, the result
// only flags it so the bot can warn - the ledger never blocks the user.
func (s *LedgerService) RecordTrade(
	ctx context.Context,
	date time.Time,
	ticker string,
	action model.TradeAction,
	qty, price, fee decimal.Decimal,
) (model.TradeResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.RecordTrade"

	slog.Debug("RecordTrade start", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("action", string(action)))
	defer func() {
		slog.Debug("RecordTrade finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if action == model.TradeDividend {
		qty = decimal.NewFromInt(1)
	}

	if !qty.IsPositive() || price.IsNegative() || fee.IsNegative() {
		return model.TradeResult{}, service.ErrInvalidAmount
	}

	cashEvents, tradeEvents, err := s.readEvents(ctx)
	if err != nil {
		return model.TradeResult{}, err
	}

	result := model.TradeResult{}

	balance := s.core.Project(cashEvents, tradeEvents)
	switch action {
	case model.TradeBuy:
		cost := qty.Mul(price).Add(fee)
		if cost.GreaterThan(balance.USD) {
			slog.Warn("buy exceeds USD on hand", slog.String("rqID", rqID), slog.String("op", op), slog.String("cost", cost.String()), slog.String("usd", balance.USD.String()))
			result.Underfunded = true
		}
	case model.TradeSell:
		held := s.core.Holdings(tradeEvents)[ticker]
		if qty.GreaterThan(held) {
			slog.Warn("sell exceeds shares held", slog.String("rqID", rqID), slog.String("op", op), slog.String("qty", qty.String()), slog.String("held", held.String()))
			result.Underfunded = true
		}
	}

	event := model.TradeEvent{
		Date:   date,
		Ticker: ticker,
		Action: action,
		Qty:    qty,
		Price:  price,
		Fee:    fee,
		Rate:   s.getSpotRate(ctx),
	}

	if err := s.repo.AppendTradeEvent(ctx, event); err != nil {
		slog.Error("got error from repo.AppendTradeEvent", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TradeResult{}, err
	}

	result.Event = event
	result.Balance = s.core.Project(cashEvents, append(tradeEvents, event))

	return result, nil
}

func (s *LedgerService) GetBalance(ctx context.Context) (model.WalletBalance, error) {
	cashEvents, tradeEvents, err := s.readEvents(ctx)
	if err != nil {
		return model.WalletBalance{}, err
	}

	return s.core.Project(cashEvents, tradeEvents), nil
}

func (s *LedgerService) GetCostBasis(ctx context.Context) (model.CostBasis, error) {
	cashEvents, err := s.repo.GetCashEvents(ctx)
	if err != nil {
		return model.CostBasis{}, err
	}

	return s.core.TrackCostBasis(cashEvents)
}

func (s *LedgerService) GetTaxReport(ctx context.Context, asOf time.Time) (model.TaxReport, error) {
	tradeEvents, err := s.repo.GetTradeEvents(ctx)
	if err != nil {
		return model.TaxReport{}, err
	}

	return s.core.ComputeTax(tradeEvents, asOf)
}

func (s *LedgerService) GetHistory(ctx context.Context, asOf time.Time) ([]model.DailySnapshot, error) {
	cashEvents, tradeEvents, err := s.readEvents(ctx)
	if err != nil {
		return nil, err
	}

	return s.core.Reconstruct(cashEvents, tradeEvents, asOf), nil
}

// GetPortfolioSummary values current holdings at live quotes. This is the
// only place live prices meet ledger output, the replay itself never uses
// them.
func (s *LedgerService) GetPortfolioSummary(ctx context.Context) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetPortfolioSummary"

	slog.Debug("GetPortfolioSummary start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GetPortfolioSummary finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	cashEvents, tradeEvents, err := s.readEvents(ctx)
	if err != nil {
		return model.PortfolioSummary{}, err
	}

	summary := model.PortfolioSummary{
		Balance:  s.core.Project(cashEvents, tradeEvents),
		SpotRate: s.getSpotRate(ctx),
	}

	holdings := s.core.Holdings(tradeEvents)

	tickers := make([]string, 0, len(holdings))
	for ticker, qty := range holdings {
		if qty.IsZero() {
			continue
		}
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		quote, err := s.getQuote(ctx, ticker)
		if err != nil {
			slog.Error("can't get quote", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
			return model.PortfolioSummary{}, err
		}

		position := model.Position{
			Ticker:    ticker,
			Qty:       holdings[ticker],
			Price:     quote.Price,
			ValueUSD:  quote.Price.Mul(holdings[ticker]),
			ChangePct: quote.ChangePct,
		}

		summary.Positions = append(summary.Positions, position)
		summary.TotalValueUSD = summary.TotalValueUSD.Add(position.ValueUSD)
	}

	return summary, nil
}

func (s *LedgerService) DeleteEventsFromDate(ctx context.Context, from time.Time) (int64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.DeleteEventsFromDate"

	slog.Debug("DeleteEventsFromDate start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("from", from))
	defer func() {
		slog.Debug("DeleteEventsFromDate finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	deleted, err := s.repo.DeleteEventsFromDate(ctx, from)
	if err != nil {
		slog.Error("got error from repo.DeleteEventsFromDate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return deleted, nil
}

// ExportReport renders the full ledger to xlsx and uploads it, returning a
// share link.
func (s *LedgerService) ExportReport(ctx context.Context, asOf time.Time) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ExportReport"

	slog.Debug("ExportReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ExportReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	cashEvents, tradeEvents, err := s.readEvents(ctx)
	if err != nil {
		return "", err
	}

	basis, err := s.core.TrackCostBasis(cashEvents)
	if err != nil {
		return "", err
	}

	tax, err := s.core.ComputeTax(tradeEvents, asOf)
	if err != nil {
		return "", err
	}

	report := model.LedgerReport{
		CashEvents:  cashEvents,
		TradeEvents: tradeEvents,
		Balance:     s.core.Project(cashEvents, tradeEvents),
		CostBasis:   basis,
		Tax:         tax,
		History:     s.core.Reconstruct(cashEvents, tradeEvents, asOf),
	}

	fileBytes, fileExtension, err := s.reportGenerator.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from reportGenerator.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	filename := "aegis_ledger_" + asOf.Format("2006-01-02") + fileExtension
	downloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}

// getQuote serves from cache first and refreshes it in the background on a
// miss.
func (s *LedgerService) getQuote(ctx context.Context, ticker string) (marketModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.getQuote"

	quote, err := s.cache.GetQuote(ctx, ticker)
	if err == nil {
		return quote, nil
	}

	quote, err = s.marketApi.GetQuote(ctx, ticker)
	if err != nil {
		slog.Error("can't get quote from marketApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
		return marketModel.Quote{}, err
	}

	go s.cache.SetQuote(context.WithoutCancel(ctx), quote)

	return quote, nil
}

// getSpotRate fetches the current KRW/USD rate. A failed or implausible
// quote falls back to the configured default so recording is never blocked
// by the market data provider.
func (s *LedgerService) getSpotRate(ctx context.Context) decimal.Decimal {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.getSpotRate"

	quote, err := s.getQuote(ctx, s.cfg.API.MarketApi.FxTicker)
	if err != nil || quote.Price.LessThan(decimal.NewFromInt(1000)) {
		slog.Warn("falling back to default fx rate", slog.String("rqID", rqID), slog.String("op", op))
		return s.cfg.API.MarketApi.FallbackFxRate
	}

	return quote.Price
}
