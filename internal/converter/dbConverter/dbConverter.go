package dbConverter

import (
	"aegis/internal/ledger"
	"aegis/internal/model"
	"aegis/internal/model/dbModel"
)

// Numeric fields go through the ledger normalizer: rows imported from the
// spreadsheet era may carry separators or blanks, and a malformed value
// must degrade to zero instead of failing the replay.

func ConvertCashEvent(dbEvent dbModel.CashEvent) model.CashEvent {
	return model.CashEvent{
		Date:      dbEvent.EventDate,
		Kind:      model.CashEventKind(dbEvent.Kind),
		AmountKRW: ledger.ParseAmount(dbEvent.AmountKRW),
		AmountUSD: ledger.ParseAmount(dbEvent.AmountUSD),
		Rate:      ledger.ParseAmount(dbEvent.Rate),
	}
}

func ConvertTradeEvent(dbEvent dbModel.TradeEvent) model.TradeEvent {
	return model.TradeEvent{
		Date:   dbEvent.EventDate,
		Ticker: dbEvent.Ticker,
		Action: model.TradeAction(dbEvent.Action),
		Qty:    ledger.ParseAmount(dbEvent.Qty),
		Price:  ledger.ParseAmount(dbEvent.Price),
		Fee:    ledger.ParseAmount(dbEvent.Fee),
		Rate:   ledger.ParseAmount(dbEvent.Rate),
	}
}
