package handler

import (
	"context"
	"net/http"

	logger "github.com/sirupsen/logrus"
)

type BotControl interface {
	TradingEnabled() bool
	SetTradingEnabled(on bool)
	LiquidateAll(ctx context.Context) (int, error)
}

func BotStartHandler(bot BotControl) http.HandlerFunc {
	return toggle(bot, true)
}

func BotStopHandler(bot BotControl) http.HandlerFunc {
	return toggle(bot, false)
}

func toggle(bot BotControl, on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bot.SetTradingEnabled(on)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"trading_enabled": bot.TradingEnabled(),
		})
	}
}

// PanicSellHandler liquidates every held position immediately.
func PanicSellHandler(bot BotControl) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		closed, err := bot.LiquidateAll(r.Context())
		if err != nil {
			logger.WithError(err).WithField("closed", closed).Error("panic sell incomplete")
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"closed":  closed,
				"error":   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"closed":  closed,
		})
	}
}
