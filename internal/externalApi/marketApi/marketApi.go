package marketApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"aegis/config"
	"aegis/internal/externalApi"
	"aegis/internal/model/marketModel"
	"aegis/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// MarketApi fetches live quotes from a Yahoo-chart style endpoint. The
// ledger core never sees these: live prices only value current holdings
// and feed the advisor, recorded event rates are what the ledger replays.
type MarketApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *MarketApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.MarketApi.Url)
	return &MarketApi{client: client}
}

func (a *MarketApi) GetQuote(ctx context.Context, ticker string) (marketModel.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/v8/finance/chart/%s", ticker)
	params := map[string]string{
		"range":    "2d",
		"interval": "1d",
	}

	slog.Debug("MarketApi.GetQuote start", slog.String("rqID", rqID), slog.String("ticker", ticker))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		SetContext(ctx).
		Get(url)

	if err != nil {
		slog.Error("error while dialing MarketApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return marketModel.Quote{}, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		slog.Warn("ticker not found in MarketApi", slog.String("rqID", rqID), slog.String("ticker", ticker))
		return marketModel.Quote{}, externalApi.ErrNotFound
	}

	rawChart := marketModel.RawChart{}
	err = json.Unmarshal(resp.Body(), &rawChart)
	if err != nil {
		slog.Error("can't unmarshall response into marketModel.RawChart", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return marketModel.Quote{}, err
	}

	quote, err := a.parseRawChart(rawChart, ticker)
	if err != nil {
		slog.Error("can't parse raw chart", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return marketModel.Quote{}, err
	}

	slog.Debug("MarketApi.GetQuote completed", slog.String("rqID", rqID), slog.String("ticker", ticker))

	return quote, nil
}

func (a *MarketApi) GetQuotes(ctx context.Context, tickers []string) (map[string]marketModel.Quote, error) {
	quotes := make(map[string]marketModel.Quote, len(tickers))

	for _, ticker := range tickers {
		quote, err := a.GetQuote(ctx, ticker)
		if err != nil {
			return nil, err
		}
		quotes[ticker] = quote
	}

	return quotes, nil
}

func (a *MarketApi) parseRawChart(rawChart marketModel.RawChart, ticker string) (marketModel.Quote, error) {
	if rawChart.Chart.Error != nil {
		return marketModel.Quote{}, externalApi.ErrNotFound
	}

	if len(rawChart.Chart.Result) == 0 {
		return marketModel.Quote{}, errors.New("empty chart result")
	}

	meta := rawChart.Chart.Result[0].Meta

	price := decimal.NewFromFloat(meta.RegularMarketPrice)
	if price.IsZero() {
		return marketModel.Quote{}, fmt.Errorf("zero market price for %s", ticker)
	}

	quote := marketModel.Quote{
		Ticker: ticker,
		Price:  price,
	}

	prev := decimal.NewFromFloat(meta.ChartPreviousClose)
	if prev.IsPositive() {
		quote.ChangePct = price.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100))
	}

	return quote, nil
}
