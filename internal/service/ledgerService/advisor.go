package ledgerService

import (
	"context"
	"log/slog"
	"sort"

	"aegis/internal/model"
	"aegis/utils"
	"github.com/shopspring/decimal"
)

// BuildAdvice evaluates the standing rules against the current ledger and
// market state. The rules mirror the old sheet-era bot: exchange when the
// spot rate is cheap against the average cost basis, flag a dip or idle
// dollars on the watch ticker, warn when the rate runs hot.
func (s *LedgerService) BuildAdvice(ctx context.Context) (model.Advice, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.BuildAdvice"

	slog.Debug("BuildAdvice start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("BuildAdvice finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	cashEvents, tradeEvents, err := s.readEvents(ctx)
	if err != nil {
		return model.Advice{}, err
	}

	basis, err := s.core.TrackCostBasis(cashEvents)
	if err != nil {
		return model.Advice{}, err
	}

	advice := model.Advice{
		Balance:  s.core.Project(cashEvents, tradeEvents),
		AvgRate:  basis.AvgRate,
		SpotRate: s.getSpotRate(ctx),
	}

	// exchange chance: spot is cheap against my average cost and there is
	// idle KRW to convert
	if advice.AvgRate.IsPositive() {
		advice.GapRatio = advice.SpotRate.Div(advice.AvgRate)

		if advice.GapRatio.LessThan(s.cfg.Advisor.GapRatioThreshold) &&
			advice.Balance.KRW.GreaterThanOrEqual(s.cfg.Advisor.MinIdleKRW) {
			advice.ExchangeChance = true
			advice.ExchangeAmountKRW = advice.Balance.KRW.Mul(s.cfg.Advisor.ExchangeFraction).Round(0)
		}
	}

	watchQuote, err := s.getQuote(ctx, s.cfg.Advisor.WatchTicker)
	if err != nil {
		slog.Warn("can't get watch ticker quote, skipping buy rules", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	} else if advice.Balance.USD.GreaterThan(watchQuote.Price) {
		advice.BuyTicker = s.cfg.Advisor.WatchTicker
		advice.BuyQty = advice.Balance.USD.Div(watchQuote.Price).IntPart()

		switch {
		case watchQuote.ChangePct.LessThan(s.cfg.Advisor.DipChangePct):
			advice.DipAlert = true
			advice.DipChangePct = watchQuote.ChangePct
		case advice.Balance.USD.GreaterThan(s.cfg.Advisor.IdleUSDThreshold):
			advice.IdleCash = true
			if parkQuote, err := s.getQuote(ctx, s.cfg.Advisor.ParkTicker); err == nil && parkQuote.Price.IsPositive() {
				advice.ParkTicker = s.cfg.Advisor.ParkTicker
				advice.ParkQty = advice.Balance.USD.Div(parkQuote.Price).IntPart()
			}
		}
	}

	if advice.SpotRate.GreaterThan(s.cfg.Advisor.HighRateKRW) {
		advice.HighRateWarning = true
	}

	return advice, nil
}

// BuildRebalancePlan distributes a fresh KRW investment across the target
// ratios, recommending whole-share buys for whatever is under target.
func (s *LedgerService) BuildRebalancePlan(ctx context.Context, investmentKRW decimal.Decimal) ([]model.BuyRecommendation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.BuildRebalancePlan"

	slog.Debug("BuildRebalancePlan start", slog.String("rqID", rqID), slog.String("op", op), slog.String("investmentKRW", investmentKRW.String()))
	defer func() {
		slog.Debug("BuildRebalancePlan finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if !investmentKRW.IsPositive() {
		return nil, nil
	}

	tradeEvents, err := s.repo.GetTradeEvents(ctx)
	if err != nil {
		return nil, err
	}

	holdings := s.core.Holdings(tradeEvents)

	spotRate := s.getSpotRate(ctx)
	investmentUSD := investmentKRW.Div(spotRate)

	tickers := make([]string, 0, len(s.cfg.Advisor.TargetRatios))
	for ticker := range s.cfg.Advisor.TargetRatios {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	prices := make(map[string]decimal.Decimal, len(tickers))
	totalValueUSD := decimal.Zero
	for _, ticker := range tickers {
		quote, err := s.getQuote(ctx, ticker)
		if err != nil {
			slog.Error("can't get quote for rebalance", slog.String("rqID", rqID), slog.String("op", op), slog.String("ticker", ticker), slog.String("err", err.Error()))
			return nil, err
		}
		prices[ticker] = quote.Price
		totalValueUSD = totalValueUSD.Add(quote.Price.Mul(holdings[ticker]))
	}

	totalAssetUSD := totalValueUSD.Add(investmentUSD)

	var recommendations []model.BuyRecommendation
	for _, ticker := range tickers {
		ratio := decimal.NewFromFloat(s.cfg.Advisor.TargetRatios[ticker])
		targetUSD := totalAssetUSD.Mul(ratio)
		currentUSD := prices[ticker].Mul(holdings[ticker])

		if currentUSD.GreaterThanOrEqual(targetUSD) {
			continue
		}

		qty := targetUSD.Sub(currentUSD).Div(prices[ticker]).IntPart()
		if qty <= 0 {
			continue
		}

		recommendations = append(recommendations, model.BuyRecommendation{
			Ticker:   ticker,
			Qty:      qty,
			PriceUSD: prices[ticker],
			CostKRW:  decimal.NewFromInt(qty).Mul(prices[ticker]).Mul(spotRate).Round(0),
		})
	}

	return recommendations, nil
}
