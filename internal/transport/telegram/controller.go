package telegram

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"aegis/data/session"
	"aegis/internal/converter/telebotConverter"
	"aegis/internal/ledger"
	"aegis/internal/model"
	"aegis/internal/service"
	"aegis/utils"
	"github.com/shopspring/decimal"
	tele "gopkg.in/telebot.v4"
)

const internalErrMsg = "something went wrong..."

type LedgerService interface {
	RecordDeposit(ctx context.Context, date time.Time, amountKRW decimal.Decimal) (model.WalletBalance, error)
	RecordWithdraw(ctx context.Context, date time.Time, amountKRW decimal.Decimal) (model.WalletBalance, error)
	RecordExchange(ctx context.Context, date time.Time, amountKRW, rate decimal.Decimal) (model.CashEvent, error)
	RecordExchangeAtSpot(ctx context.Context, date time.Time, amountKRW decimal.Decimal) (model.CashEvent, error)
	RecordReverseExchange(ctx context.Context, date time.Time, amountUSD, rate decimal.Decimal) (model.CashEvent, error)
	RecordTrade(ctx context.Context, date time.Time, ticker string, action model.TradeAction, qty, price, fee decimal.Decimal) (model.TradeResult, error)
	GetBalance(ctx context.Context) (model.WalletBalance, error)
	GetCostBasis(ctx context.Context) (model.CostBasis, error)
	GetTaxReport(ctx context.Context, asOf time.Time) (model.TaxReport, error)
	GetHistory(ctx context.Context, asOf time.Time) ([]model.DailySnapshot, error)
	GetPortfolioSummary(ctx context.Context) (model.PortfolioSummary, error)
	BuildAdvice(ctx context.Context) (model.Advice, error)
	BuildRebalancePlan(ctx context.Context, investmentKRW decimal.Decimal) ([]model.BuyRecommendation, error)
	DeleteEventsFromDate(ctx context.Context, from time.Time) (int64, error)
	ExportReport(ctx context.Context, asOf time.Time) (downloadLink string, err error)
}

type Session interface {
	GetSession(ctx context.Context, key string) (model.Session, error)
	SetSession(ctx context.Context, key string, session model.Session) error
}

type Controller struct {
	ledgerService LedgerService
	session       Session
}

func NewController(ledgerService LedgerService, session Session) *Controller {
	return &Controller{
		ledgerService: ledgerService,
		session:       session,
	}
}

func (ctrl *Controller) Start(c tele.Context) error {
	return c.Send("🛡️ Aegis is up. /help lists the commands.")
}

func (ctrl *Controller) Help(c tele.Context) error {
	return c.Send(`Recording:
/deposit - add KRW to the wallet
/withdraw - take KRW out
/exchange - KRW to USD (amount [rate], spot rate if omitted)
/sell_usd - USD back to KRW (amount rate)
/buy - buy shares (TICKER QTY PRICE [FEE])
/sell - sell shares (TICKER QTY PRICE [FEE])
/dividend - record a payout (TICKER AMOUNT)

Reading:
/balance - cash on hand
/basis - exchange cost basis
/tax - realized gains and estimated tax
/history - daily balance history
/portfolio - holdings at live prices
/advice - what the advisor thinks right now
/rebalance - buy plan for a fresh investment
/report - full xlsx report, uploaded to Drive

Danger zone:
/delete_from - wipe events from a date onward`)
}

// setAction stores the pending input step and sends the prompt.
func (ctrl *Controller) setAction(c tele.Context, act model.Session, prompt string) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	err := ctrl.session.SetSession(ctx, strconv.FormatInt(c.Chat().ID, 10), act)
	if err != nil {
		slog.Error("got error from session.SetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(prompt)
}

func (ctrl *Controller) resetAction(ctx context.Context, c tele.Context) {
	_ = ctrl.session.SetSession(ctx, strconv.FormatInt(c.Chat().ID, 10), model.Session{Action: model.DefaultAction})
}

func (ctrl *Controller) InitDeposit(c tele.Context) error {
	return ctrl.setAction(c, model.Session{Action: model.ExpectingDepositAmount}, "Deposit amount in KRW:")
}

func (ctrl *Controller) InitWithdraw(c tele.Context) error {
	return ctrl.setAction(c, model.Session{Action: model.ExpectingWithdrawAmount}, "Withdraw amount in KRW:")
}

func (ctrl *Controller) InitExchange(c tele.Context) error {
	return ctrl.setAction(c, model.Session{Action: model.ExpectingExchangeInput}, "KRW amount and rate, e.g. 1000000 1435.5 (rate optional, spot is used if omitted):")
}

func (ctrl *Controller) InitReverseExchange(c tele.Context) error {
	return ctrl.setAction(c, model.Session{Action: model.ExpectingReverseExchangeInput}, "USD amount and rate, e.g. 500 1460:")
}

func (ctrl *Controller) InitBuy(c tele.Context) error {
	return ctrl.setAction(c, model.Session{Action: model.ExpectingBuyInput}, "TICKER QTY PRICE [FEE], e.g. QQQM 10 215.30 0.25:")
}

func (ctrl *Controller) InitSell(c tele.Context) error {
	return ctrl.setAction(c, model.Session{Action: model.ExpectingSellInput}, "TICKER QTY PRICE [FEE], e.g. SGOV 5 100.45:")
}

func (ctrl *Controller) InitDividend(c tele.Context) error {
	return ctrl.setAction(c, model.Session{Action: model.ExpectingDividendInput}, "TICKER AMOUNT, e.g. SGOV 12.34:")
}

func (ctrl *Controller) InitRebalance(c tele.Context) error {
	return ctrl.setAction(c, model.Session{Action: model.ExpectingRebalanceAmount}, "Fresh KRW to invest:")
}

func (ctrl *Controller) InitDeleteFrom(c tele.Context) error {
	return ctrl.setAction(c, model.Session{Action: model.ExpectingDeleteFromDate}, "Delete events starting from which date? YYYY-MM-DD:")
}

func (ctrl *Controller) ProcessDepositAmount(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	defer ctrl.resetAction(ctx, c)

	amount := ledger.ParseAmount(c.Message().Text)
	if !amount.IsPositive() {
		return c.Send("Need a positive KRW amount, try /deposit again.")
	}

	balance, err := ctrl.ledgerService.RecordDeposit(ctx, time.Now(), amount)
	if err != nil {
		slog.Error("got error from ledgerService.RecordDeposit", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.BalanceResponse(balance))
}

func (ctrl *Controller) ProcessWithdrawAmount(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	defer ctrl.resetAction(ctx, c)

	amount := ledger.ParseAmount(c.Message().Text)
	if !amount.IsPositive() {
		return c.Send("Need a positive KRW amount, try /withdraw again.")
	}

	balance, err := ctrl.ledgerService.RecordWithdraw(ctx, time.Now(), amount)
	if err != nil {
		slog.Error("got error from ledgerService.RecordWithdraw", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.BalanceResponse(balance))
}

func (ctrl *Controller) ProcessExchangeInput(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	defer ctrl.resetAction(ctx, c)

	fields := strings.Fields(c.Message().Text)
	if len(fields) < 1 || len(fields) > 2 {
		return c.Send("Expected: AMOUNT_KRW [RATE]. Try /exchange again.")
	}

	amount := ledger.ParseAmount(fields[0])
	if !amount.IsPositive() {
		return c.Send("Couldn't read the KRW amount, try /exchange again.")
	}

	var event model.CashEvent
	var err error

	if len(fields) == 2 {
		rate := ledger.ParseAmount(fields[1])
		if !rate.IsPositive() {
			return c.Send("Couldn't read the rate, try /exchange again.")
		}
		event, err = ctrl.ledgerService.RecordExchange(ctx, time.Now(), amount, rate)
	} else {
		event, err = ctrl.ledgerService.RecordExchangeAtSpot(ctx, time.Now(), amount)
	}

	if err != nil {
		slog.Error("got error from ledgerService.RecordExchange", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.CashEventResponse(event))
}

func (ctrl *Controller) ProcessReverseExchangeInput(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	defer ctrl.resetAction(ctx, c)

	fields := strings.Fields(c.Message().Text)
	if len(fields) != 2 {
		return c.Send("Expected: AMOUNT_USD RATE. Try /sell_usd again.")
	}

	amount := ledger.ParseAmount(fields[0])
	rate := ledger.ParseAmount(fields[1])
	if !amount.IsPositive() || !rate.IsPositive() {
		return c.Send("Couldn't read the amount or rate, try /sell_usd again.")
	}

	event, err := ctrl.ledgerService.RecordReverseExchange(ctx, time.Now(), amount, rate)
	if err != nil {
		slog.Error("got error from ledgerService.RecordReverseExchange", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.CashEventResponse(event))
}

func (ctrl *Controller) ProcessBuyInput(c tele.Context) error {
	return ctrl.processTradeInput(c, model.TradeBuy)
}

func (ctrl *Controller) ProcessSellInput(c tele.Context) error {
	return ctrl.processTradeInput(c, model.TradeSell)
}

func (ctrl *Controller) processTradeInput(c tele.Context, action model.TradeAction) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	defer ctrl.resetAction(ctx, c)

	fields := strings.Fields(c.Message().Text)
	if len(fields) < 3 || len(fields) > 4 {
		return c.Send("Expected: TICKER QTY PRICE [FEE].")
	}

	ticker := strings.ToUpper(fields[0])
	qty := ledger.ParseAmount(fields[1])
	price := ledger.ParseAmount(fields[2])

	fee := decimal.Zero
	if len(fields) == 4 {
		fee = ledger.ParseAmount(fields[3])
	}

	if !qty.IsPositive() || !price.IsPositive() {
		return c.Send("Couldn't read qty or price, try again.")
	}

	result, err := ctrl.ledgerService.RecordTrade(ctx, time.Now(), ticker, action, qty, price, fee)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			return c.Send("Those numbers don't make sense, try again.")
		}
		slog.Error("got error from ledgerService.RecordTrade", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.TradeResultResponse(result))
}

func (ctrl *Controller) ProcessDividendInput(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	defer ctrl.resetAction(ctx, c)

	fields := strings.Fields(c.Message().Text)
	if len(fields) != 2 {
		return c.Send("Expected: TICKER AMOUNT.")
	}

	ticker := strings.ToUpper(fields[0])
	amount := ledger.ParseAmount(fields[1])
	if !amount.IsPositive() {
		return c.Send("Couldn't read the payout amount, try /dividend again.")
	}

	result, err := ctrl.ledgerService.RecordTrade(ctx, time.Now(), ticker, model.TradeDividend, decimal.NewFromInt(1), amount, decimal.Zero)
	if err != nil {
		slog.Error("got error from ledgerService.RecordTrade", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.TradeResultResponse(result))
}

func (ctrl *Controller) ProcessRebalanceAmount(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)
	defer ctrl.resetAction(ctx, c)

	amount := ledger.ParseAmount(c.Message().Text)
	if !amount.IsPositive() {
		return c.Send("Need a positive KRW amount, try /rebalance again.")
	}

	plan, err := ctrl.ledgerService.BuildRebalancePlan(ctx, amount)
	if err != nil {
		slog.Error("got error from ledgerService.BuildRebalancePlan", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.RebalancePlanResponse(amount, plan))
}

func (ctrl *Controller) ProcessDeleteFromDate(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	defer ctrl.resetAction(ctx, c)

	from := strings.TrimSpace(c.Message().Text)
	if _, err := time.Parse("2006-01-02", from); err != nil {
		return c.Send("That's not a YYYY-MM-DD date, try /delete_from again.")
	}

	text, markup := telebotConverter.DeleteConfirmResponse(from)
	return c.Send(text, markup)
}

func (ctrl *Controller) ConfirmDelete(c tele.Context, fromStr string) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		slog.Error("bad date in delete callback", slog.String("rqID", rqID), slog.String("data", fromStr))
		return c.Edit(internalErrMsg)
	}

	deleted, err := ctrl.ledgerService.DeleteEventsFromDate(ctx, from)
	if err != nil {
		slog.Error("got error from ledgerService.DeleteEventsFromDate", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Edit(internalErrMsg)
	}

	return c.Edit("🗑 Deleted " + strconv.FormatInt(deleted, 10) + " events from " + fromStr + " onward.")
}

func (ctrl *Controller) CancelDelete(c tele.Context) error {
	return c.Edit("Cancelled, nothing deleted.")
}

// ExchangeSuggested records the exchange the advisor proposed, at the spot
// rate of the moment the button is pressed.
func (ctrl *Controller) ExchangeSuggested(c tele.Context, amountStr string) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	amount := ledger.ParseAmount(amountStr)
	if !amount.IsPositive() {
		slog.Error("bad amount in exchange callback", slog.String("rqID", rqID), slog.String("data", amountStr))
		return c.Edit(internalErrMsg)
	}

	event, err := ctrl.ledgerService.RecordExchangeAtSpot(ctx, time.Now(), amount)
	if err != nil {
		slog.Error("got error from ledgerService.RecordExchangeAtSpot", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Edit(internalErrMsg)
	}

	return c.Edit(telebotConverter.CashEventResponse(event))
}

func (ctrl *Controller) Balance(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	balance, err := ctrl.ledgerService.GetBalance(ctx)
	if err != nil {
		slog.Error("got error from ledgerService.GetBalance", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.BalanceResponse(balance))
}

func (ctrl *Controller) CostBasis(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	basis, err := ctrl.ledgerService.GetCostBasis(ctx)
	if err != nil {
		slog.Error("got error from ledgerService.GetCostBasis", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.CostBasisResponse(basis))
}

func (ctrl *Controller) TaxReport(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	report, err := ctrl.ledgerService.GetTaxReport(ctx, time.Now())
	if err != nil {
		slog.Error("got error from ledgerService.GetTaxReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.TaxReportResponse(report))
}

func (ctrl *Controller) History(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	history, err := ctrl.ledgerService.GetHistory(ctx, time.Now())
	if err != nil {
		slog.Error("got error from ledgerService.GetHistory", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.HistoryResponse(history))
}

func (ctrl *Controller) Portfolio(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	summary, err := ctrl.ledgerService.GetPortfolioSummary(ctx)
	if err != nil {
		slog.Error("got error from ledgerService.GetPortfolioSummary", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send(telebotConverter.PortfolioSummaryResponse(summary))
}

func (ctrl *Controller) Advice(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	advice, err := ctrl.ledgerService.BuildAdvice(ctx)
	if err != nil {
		slog.Error("got error from ledgerService.BuildAdvice", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	text, markup := telebotConverter.AdviceResponse(advice)
	return c.Send(text, markup)
}

func (ctrl *Controller) Report(c tele.Context) error {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	_ = c.Send("Rendering the report, hold on...")

	link, err := ctrl.ledgerService.ExportReport(ctx, time.Now())
	if err != nil {
		slog.Error("got error from ledgerService.ExportReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return c.Send(internalErrMsg)
	}

	return c.Send("📄 " + link)
}

func (ctrl *Controller) UnknownInput(c tele.Context) error {
	return c.Send("Pick a command first, /help shows them all.")
}

// SessionOrDefault resolves the pending input step for an OnText update.
func (ctrl *Controller) SessionOrDefault(ctx context.Context, chatID int64) model.Session {
	rqID := utils.GetRequestIDFromCtx(ctx)

	chatSession, err := ctrl.session.GetSession(ctx, strconv.FormatInt(chatID, 10))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("got error from session.GetSession", slog.String("rqID", rqID), slog.String("err", err.Error()))
		}
		return model.Session{Action: model.DefaultAction}
	}

	return chatSession
}
