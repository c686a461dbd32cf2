package telebotConverter

import (
	"fmt"
	"sort"
	"strings"

	"aegis/internal/model"
	"aegis/internal/model/tg/tgCallback"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

func krw(d decimal.Decimal) string {
	return "₩" + group(d.Round(0).String())
}

func usd(d decimal.Decimal) string {
	return "$" + group(d.Round(2).StringFixed(2))
}

// group inserts thousands separators into the integer part.
func group(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var sb strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}

	out := sb.String()
	if hasFrac {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}

	return out
}

func BalanceResponse(balance model.WalletBalance) string {
	var sb strings.Builder

	sb.WriteString("💼 Wallet balance\n\n")
	sb.WriteString(fmt.Sprintf("🇰🇷 KRW: %s\n", krw(balance.KRW)))
	sb.WriteString(fmt.Sprintf("🇺🇸 USD: %s\n", usd(balance.USD)))

	return sb.String()
}

func CostBasisResponse(basis model.CostBasis) string {
	var sb strings.Builder

	sb.WriteString("⚖️ Exchange cost basis\n\n")

	if !basis.AvgRate.IsPositive() {
		sb.WriteString("No dollars held, no basis to speak of.\n")
		return sb.String()
	}

	sb.WriteString(fmt.Sprintf("Average rate: %s KRW/USD\n", basis.AvgRate.Round(2)))
	sb.WriteString(fmt.Sprintf("USD principal: %s\n", usd(basis.USDPrincipal)))
	sb.WriteString(fmt.Sprintf("KRW spent: %s\n", krw(basis.KRWPrincipal)))

	return sb.String()
}

func TaxReportResponse(report model.TaxReport) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🧾 Realized gains, %d\n\n", report.Year))
	sb.WriteString(fmt.Sprintf("Realized: %s\n", krw(report.RealizedKRW)))

	for _, gain := range report.Gains {
		sb.WriteString(fmt.Sprintf(" ▸ %s %s: %s\n", gain.Date.Format("01-02"), gain.Ticker, krw(gain.ProfitKRW)))
	}

	sb.WriteString("\n")
	if report.EstimatedTaxKRW.IsPositive() {
		sb.WriteString(fmt.Sprintf("Estimated tax due: %s\n", krw(report.EstimatedTaxKRW)))
	} else {
		sb.WriteString(fmt.Sprintf("Within the allowance, %s of headroom left.\n", krw(report.RemainingAllowance)))
	}

	return sb.String()
}

func PortfolioSummaryResponse(summary model.PortfolioSummary) string {
	var sb strings.Builder

	sb.WriteString("📊 Portfolio\n\n")

	for _, position := range summary.Positions {
		sb.WriteString(fmt.Sprintf("▸ %s: %s × %s = %s (%s%%)\n",
			position.Ticker,
			position.Qty,
			usd(position.Price),
			usd(position.ValueUSD),
			position.ChangePct.Round(2),
		))
	}

	if len(summary.Positions) == 0 {
		sb.WriteString("No holdings yet.\n")
	}

	sb.WriteString(fmt.Sprintf("\nHoldings value: %s\n", usd(summary.TotalValueUSD)))
	sb.WriteString(fmt.Sprintf("Cash: %s + %s\n", krw(summary.Balance.KRW), usd(summary.Balance.USD)))
	sb.WriteString(fmt.Sprintf("Spot rate: %s KRW/USD\n", summary.SpotRate.Round(2)))

	return sb.String()
}

func AdviceResponse(advice model.Advice) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}
	var sb strings.Builder

	sb.WriteString("🛡️ Aegis alert\n\n")
	sb.WriteString(fmt.Sprintf("Spot rate: %s KRW/USD", advice.SpotRate.Round(2)))
	if advice.AvgRate.IsPositive() {
		sb.WriteString(fmt.Sprintf(" (my avg %s, gap %s)", advice.AvgRate.Round(2), advice.GapRatio.Round(4)))
	}
	sb.WriteString("\n\n")

	var rows []tele.Row

	if advice.ExchangeChance {
		sb.WriteString(fmt.Sprintf("💱 Rate is below my average cost. Consider exchanging %s.\n", krw(advice.ExchangeAmountKRW)))
		exchangeBtn := markup.Data("Exchange "+krw(advice.ExchangeAmountKRW), tgCallback.ExchangePrefix+advice.ExchangeAmountKRW.String())
		rows = append(rows, markup.Row(exchangeBtn))
	}

	if advice.DipAlert {
		sb.WriteString(fmt.Sprintf("📉 %s dipped %s%% today. Cash covers up to %d shares.\n", advice.BuyTicker, advice.DipChangePct.Round(2), advice.BuyQty))
	} else if advice.IdleCash {
		sb.WriteString(fmt.Sprintf("💤 %s idle in USD.", usd(advice.Balance.USD)))
		if advice.ParkTicker != "" {
			sb.WriteString(fmt.Sprintf(" Could park %d × %s meanwhile.", advice.ParkQty, advice.ParkTicker))
		}
		sb.WriteString("\n")
	}

	if advice.HighRateWarning {
		sb.WriteString("🔥 Rate is running hot, not a day for exchanging.\n")
	}

	markup.Inline(rows...)

	return sb.String(), markup
}

func HistoryResponse(history []model.DailySnapshot) string {
	if len(history) == 0 {
		return "📈 No history yet, record something first."
	}

	first := history[0]
	last := history[len(history)-1]

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("📈 History, %s → %s (%d days)\n\n", first.Date.Format("2006-01-02"), last.Date.Format("2006-01-02"), len(history)))
	sb.WriteString(fmt.Sprintf("Cash now: %s + %s\n", krw(last.KRW), usd(last.USD)))
	sb.WriteString(fmt.Sprintf("Net deposits: %s\n", krw(last.NetDeposits)))

	if len(last.Holdings) > 0 {
		sb.WriteString("\nHoldings:\n")
		for _, ticker := range sortedTickers(last.Holdings) {
			sb.WriteString(fmt.Sprintf(" ▸ %s: %s\n", ticker, last.Holdings[ticker]))
		}
	}

	return sb.String()
}

func sortedTickers(holdings map[string]decimal.Decimal) []string {
	tickers := make([]string, 0, len(holdings))
	for ticker, qty := range holdings {
		if qty.IsZero() {
			continue
		}
		tickers = append(tickers, ticker)
	}

	sort.Strings(tickers)

	return tickers
}

func RebalancePlanResponse(investmentKRW decimal.Decimal, plan []model.BuyRecommendation) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🧮 Rebalance plan for %s\n\n", krw(investmentKRW)))

	if len(plan) == 0 {
		sb.WriteString("Everything is already at target, nothing to buy.")
		return sb.String()
	}

	total := decimal.Zero
	for _, rec := range plan {
		sb.WriteString(fmt.Sprintf("▸ %s: buy %d × %s ≈ %s\n", rec.Ticker, rec.Qty, usd(rec.PriceUSD), krw(rec.CostKRW)))
		total = total.Add(rec.CostKRW)
	}

	sb.WriteString(fmt.Sprintf("\nTotal: %s\n", krw(total)))

	return sb.String()
}

func TradeResultResponse(result model.TradeResult) string {
	var sb strings.Builder

	event := result.Event
	switch event.Action {
	case model.TradeBuy:
		sb.WriteString(fmt.Sprintf("✅ Bought %s × %s at %s (fee %s)\n", event.Qty, event.Ticker, usd(event.Price), usd(event.Fee)))
	case model.TradeSell:
		sb.WriteString(fmt.Sprintf("✅ Sold %s × %s at %s (fee %s)\n", event.Qty, event.Ticker, usd(event.Price), usd(event.Fee)))
	case model.TradeDividend:
		sb.WriteString(fmt.Sprintf("✅ Dividend from %s: %s\n", event.Ticker, usd(event.Price)))
	}

	if result.Underfunded {
		sb.WriteString("\n⚠️ This trade exceeds what the ledger says you hold. Recorded anyway, double-check your broker.\n")
	}

	sb.WriteString(fmt.Sprintf("\n🇰🇷 KRW: %s\n🇺🇸 USD: %s\n", krw(result.Balance.KRW), usd(result.Balance.USD)))

	return sb.String()
}

func CashEventResponse(event model.CashEvent) string {
	switch event.Kind {
	case model.CashExchangeToUSD:
		return fmt.Sprintf("✅ Exchanged %s → %s at %s", krw(event.AmountKRW), usd(event.AmountUSD), event.Rate.Round(2))
	case model.CashExchangeToKRW:
		return fmt.Sprintf("✅ Exchanged %s → %s at %s", usd(event.AmountUSD), krw(event.AmountKRW), event.Rate.Round(2))
	default:
		return fmt.Sprintf("✅ Recorded %s of %s", strings.ToLower(string(event.Kind)), krw(event.AmountKRW))
	}
}

func DeleteConfirmResponse(from string) (text string, markup *tele.ReplyMarkup) {
	markup = &tele.ReplyMarkup{}

	confirmBtn := markup.Data("🗑 Yes, delete", tgCallback.ConfirmDeletePrefix+from)
	cancelBtn := markup.Data("Cancel", tgCallback.CancelDelete)
	markup.Inline(markup.Row(confirmBtn, cancelBtn))

	return fmt.Sprintf("Delete every event from %s onward? This cannot be undone.", from), markup
}
