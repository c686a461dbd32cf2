package tgbot

import (
	"log/slog"
	"strings"

	"aegis/config"
	"aegis/internal/model"
	"aegis/internal/model/tg/tgCallback"
	"aegis/internal/transport/telegram"
	customMW "aegis/internal/transport/telegram/middleware"
	"aegis/utils"
	tele "gopkg.in/telebot.v4"
	"gopkg.in/telebot.v4/middleware"
)

type TGBot struct {
	bot  *tele.Bot
	cfg  *config.Config
	ctrl *telegram.Controller
}

func New(cfg *config.Config, ctrl *telegram.Controller) *TGBot {
	settings := tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Telegram.UpdTimeout},
	}

	b, err := tele.NewBot(settings)
	if err != nil {
		slog.Error("error while tele.NewBot", slog.String("err", err.Error()))
		panic(err)
	}

	return &TGBot{bot: b, cfg: cfg, ctrl: ctrl}
}

func (b *TGBot) Start() {
	b.bot.Use(middleware.Recover(), customMW.Logger(), customMW.OwnerOnly(b.cfg))

	b.setupRoutes()

	go b.bot.Start()
	slog.Info("tgbot started!")
}

func (b *TGBot) Stop() {
	slog.Info("start stopping tgbot")
	b.bot.Stop()
	slog.Info("tgbot stopped")
}

// Notify pushes a message to the owner chat, used by scheduler jobs.
func (b *TGBot) Notify(text string, markup *tele.ReplyMarkup) error {
	owner := &tele.Chat{ID: b.cfg.Telegram.OwnerChatID}
	if markup != nil {
		_, err := b.bot.Send(owner, text, markup)
		return err
	}
	_, err := b.bot.Send(owner, text)
	return err
}

func (b *TGBot) setupRoutes() {
	b.bot.Handle("/start", b.ctrl.Start)
	b.bot.Handle("/help", b.ctrl.Help)

	b.bot.Handle("/deposit", b.ctrl.InitDeposit)
	b.bot.Handle("/withdraw", b.ctrl.InitWithdraw)
	b.bot.Handle("/exchange", b.ctrl.InitExchange)
	b.bot.Handle("/sell_usd", b.ctrl.InitReverseExchange)
	b.bot.Handle("/buy", b.ctrl.InitBuy)
	b.bot.Handle("/sell", b.ctrl.InitSell)
	b.bot.Handle("/dividend", b.ctrl.InitDividend)
	b.bot.Handle("/rebalance", b.ctrl.InitRebalance)
	b.bot.Handle("/delete_from", b.ctrl.InitDeleteFrom)

	b.bot.Handle("/balance", b.ctrl.Balance)
	b.bot.Handle("/basis", b.ctrl.CostBasis)
	b.bot.Handle("/tax", b.ctrl.TaxReport)
	b.bot.Handle("/history", b.ctrl.History)
	b.bot.Handle("/portfolio", b.ctrl.Portfolio)
	b.bot.Handle("/advice", b.ctrl.Advice)
	b.bot.Handle("/report", b.ctrl.Report)

	// free text answers whatever input step the session is waiting on
	b.bot.Handle(tele.OnText, func(c tele.Context) error {
		ctx := utils.CreateCtxWithRqID(c)
		chatSession := b.ctrl.SessionOrDefault(ctx, c.Chat().ID)

		switch chatSession.Action {
		case model.ExpectingDepositAmount:
			return b.ctrl.ProcessDepositAmount(c)
		case model.ExpectingWithdrawAmount:
			return b.ctrl.ProcessWithdrawAmount(c)
		case model.ExpectingExchangeInput:
			return b.ctrl.ProcessExchangeInput(c)
		case model.ExpectingReverseExchangeInput:
			return b.ctrl.ProcessReverseExchangeInput(c)
		case model.ExpectingBuyInput:
			return b.ctrl.ProcessBuyInput(c)
		case model.ExpectingSellInput:
			return b.ctrl.ProcessSellInput(c)
		case model.ExpectingDividendInput:
			return b.ctrl.ProcessDividendInput(c)
		case model.ExpectingRebalanceAmount:
			return b.ctrl.ProcessRebalanceAmount(c)
		case model.ExpectingDeleteFromDate:
			return b.ctrl.ProcessDeleteFromDate(c)
		default:
			return b.ctrl.UnknownInput(c)
		}
	})

	b.bot.Handle(tele.OnCallback, func(c tele.Context) error {
		data := strings.TrimPrefix(c.Callback().Data, "\f")

		switch {
		case strings.HasPrefix(data, tgCallback.ConfirmDeletePrefix):
			return b.ctrl.ConfirmDelete(c, strings.TrimPrefix(data, tgCallback.ConfirmDeletePrefix))
		case data == tgCallback.CancelDelete:
			return b.ctrl.CancelDelete(c)
		case strings.HasPrefix(data, tgCallback.ExchangePrefix):
			return b.ctrl.ExchangeSuggested(c, strings.TrimPrefix(data, tgCallback.ExchangePrefix))
		default:
			slog.Warn("unknown callback", slog.String("data", data))
			return c.Respond()
		}
	})
}
