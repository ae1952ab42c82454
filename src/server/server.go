package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"autotrader/src/auth"
	"autotrader/src/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
)

type Deps struct {
	Status      handler.StatusProvider
	Trades      handler.TradeLister
	Decisions   handler.DecisionLister
	Strategies  handler.StrategyCatalog
	Assignments handler.AssignmentStore
	Portfolio   handler.PortfolioReader
	Bot         handler.BotControl
	Exceptions  handler.ExceptionLister
	Hub         *Hub
}

// NewRouter mounts the dashboard API. Reads are public; control routes and
// the exception log require the admin token when adminHash is set.
func NewRouter(deps Deps, cfg *Config, adminHash string) http.Handler {
	r := chi.NewRouter()
	// === Global Middleware ===
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Admin-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error(" \"/health error")
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.Handler(func(ctx context.Context) any {
			return deps.Status.Status(ctx)
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", handler.StatusHandler(deps.Status))
		r.Get("/trades", handler.TradesHandler(deps.Trades))
		r.Get("/decisions", handler.DecisionsHandler(deps.Decisions))
		r.Get("/strategies/list", handler.ListStrategiesHandler(deps.Strategies))
		r.Get("/strategies/config/{symbol}", handler.GetStrategyConfigHandler(deps.Assignments))
		r.Get("/portfolio/history", handler.PortfolioHistoryHandler(deps.Portfolio))
		r.Get("/portfolio/performance", handler.PortfolioPerformanceHandler(deps.Portfolio))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(adminHash))
			r.Post("/strategies/config", handler.SaveStrategyConfigHandler(deps.Assignments, deps.Strategies))
			r.Post("/bot/start", handler.BotStartHandler(deps.Bot))
			r.Post("/bot/stop", handler.BotStopHandler(deps.Bot))
			r.Post("/panic-sell", handler.PanicSellHandler(deps.Bot))
			r.Get("/exceptions", handler.ExceptionsHandler(deps.Exceptions))
		})
	})

	return r
}

// StartServer serves h on port until ctx is cancelled, then shuts down
// gracefully.
func StartServer(ctx context.Context, port string, h http.Handler) error {
	addr := ":" + port
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.WithError(err).Error("Server crashed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Shutdown error")
		return err
	}
	return nil
}
