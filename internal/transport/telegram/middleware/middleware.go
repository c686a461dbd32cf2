package middleware

import (
	"fmt"
	"log/slog"
	"time"

	"aegis/config"
	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			now := time.Now()

			rqID := uuid.NewString()
			c.Set("rqID", rqID)

			slog.Info(
				"start request",
				slog.String("rqID", rqID),
			)

			defer func() {
				slog.Info(
					"request finished",
					slog.String("rqID", rqID),
					slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
				)
			}()

			return next(c)
		}
	}
}

// OwnerOnly drops every update that is not from the owner chat. The ledger
// is personal, there are no other users to serve.
func OwnerOnly(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}
			if chat.ID != cfg.Telegram.OwnerChatID {
				slog.Warn("update from foreign chat rejected", slog.Int64("chatID", chat.ID))
				return nil
			}
			return next(c)
		}
	}
}
