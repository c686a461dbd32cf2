package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"aegis/config"
	"aegis/internal/converter/dbConverter"
	"aegis/internal/model"
	"aegis/internal/model/dbModel"
	"aegis/utils"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

// Postgres is the append-only event store. Events are never updated in
// place: the only mutations are appends and the bulk delete-from-date,
// every derived value is recomputed from a full read.
type Postgres struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewPostgres(cfg *config.Config, db *sqlx.DB) *Postgres {
	return &Postgres{db: db, cfg: cfg}
}

func (r *Postgres) AppendCashEvent(ctx context.Context, event model.CashEvent) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AppendCashEvent"
	query := `
		INSERT INTO cash_events(event_date, kind, amount_krw, amount_usd, rate)
		VALUES ($1, $2, $3, $4, $5)
	`

	slog.Debug("AppendCashEvent start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("event", event), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("AppendCashEvent failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AppendCashEvent completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.db.ExecContext(ctx, query, event.Date, string(event.Kind), event.AmountKRW, event.AmountUSD, event.Rate)
	return err
}

func (r *Postgres) AppendTradeEvent(ctx context.Context, event model.TradeEvent) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AppendTradeEvent"
	query := `
		INSERT INTO trade_events(event_date, ticker, action, qty, price, fee, rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	slog.Debug("AppendTradeEvent start", slog.String("rqID", rqID), slog.String("op", op), slog.Any("event", event), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("AppendTradeEvent failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AppendTradeEvent completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.db.ExecContext(ctx, query, event.Date, event.Ticker, string(event.Action), event.Qty, event.Price, event.Fee, event.Rate)
	return err
}

// GetCashEvents reads the whole cash log ordered by date, then by insertion
// order within a day. Numeric columns come back as text and go through the
// ledger normalizer in the converter.
func (r *Postgres) GetCashEvents(ctx context.Context) (events []model.CashEvent, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetCashEvents"
	query := `
		SELECT event_id, event_date, kind,
			amount_krw::text AS amount_krw,
			amount_usd::text AS amount_usd,
			rate::text AS rate
		FROM cash_events
		ORDER BY event_date, event_id
	`

	slog.Debug("GetCashEvents start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetCashEvents failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetCashEvents completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var event dbModel.CashEvent
		err = rows.StructScan(&event)
		if err != nil {
			return nil, err
		}
		events = append(events, dbConverter.ConvertCashEvent(event))
	}

	return events, nil
}

func (r *Postgres) GetTradeEvents(ctx context.Context) (events []model.TradeEvent, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTradeEvents"
	query := `
		SELECT event_id, event_date, ticker, action,
			qty::text AS qty,
			price::text AS price,
			fee::text AS fee,
			rate::text AS rate
		FROM trade_events
		ORDER BY event_date, event_id
	`

	slog.Debug("GetTradeEvents start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTradeEvents failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTradeEvents completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var event dbModel.TradeEvent
		err = rows.StructScan(&event)
		if err != nil {
			return nil, err
		}
		events = append(events, dbConverter.ConvertTradeEvent(event))
	}

	return events, nil
}

// DeleteEventsFromDate drops every event dated from the given day onwards,
// in both logs. The next read recomputes all derived state from what is
// left, so no cleanup of balances is needed.
func (r *Postgres) DeleteEventsFromDate(ctx context.Context, from time.Time) (deleted int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteEventsFromDate"

	slog.Debug("DeleteEventsFromDate start", slog.String("rqID", rqID), slog.String("op", op), slog.Time("from", from))
	defer func() {
		if err != nil {
			slog.Error("DeleteEventsFromDate failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteEventsFromDate completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("deleted", deleted))
		}
	}()

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM cash_events WHERE event_date >= $1`, from)
	if err != nil {
		return 0, err
	}
	cashDeleted, _ := res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM trade_events WHERE event_date >= $1`, from)
	if err != nil {
		return 0, err
	}
	tradesDeleted, _ := res.RowsAffected()

	if err = tx.Commit(); err != nil {
		return 0, err
	}

	return cashDeleted + tradesDeleted, nil
}
