package dbModel

import "time"

// Numeric columns are scanned as text and coerced by the ledger normalizer:
// the spreadsheet import path can leave thousands separators or blanks in
// them and a bad row must never break a replay.
type CashEvent struct {
	EventID   int64     `db:"event_id"`
	EventDate time.Time `db:"event_date"`
	Kind      string    `db:"kind"`
	AmountKRW string    `db:"amount_krw"`
	AmountUSD string    `db:"amount_usd"`
	Rate      string    `db:"rate"`
}

type TradeEvent struct {
	EventID   int64     `db:"event_id"`
	EventDate time.Time `db:"event_date"`
	Ticker    string    `db:"ticker"`
	Action    string    `db:"action"`
	Qty       string    `db:"qty"`
	Price     string    `db:"price"`
	Fee       string    `db:"fee"`
	Rate      string    `db:"rate"`
}
