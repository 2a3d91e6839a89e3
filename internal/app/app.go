// Package app wires the event pipeline from its configuration.
package app

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/config"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/gateway"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/journal"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/middleware"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/eventquery"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/pool"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/tracker"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/submission"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/telemetry"
	httptransport "github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/transport/http"
)

// App holds the wired service and the HTTP handler serving it.
type App struct {
	Handler    http.Handler
	Submission *submission.Service
	Metrics    *telemetry.Metrics
	Tracker    *tracker.Tracker

	journal *journal.Store
}

// New builds the app. A nil gw selects the HTTP gateway client for
// cfg.Gateway; tests pass an in-memory one.
func New(cfg config.Config, logger *zap.Logger, gw gateway.Gateway) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tr := &tracker.Tracker{}
	limiter := pool.New(cfg.Gateway.MaxInFlight)
	metrics := telemetry.NewMetrics(tr, limiter)

	if gw == nil {
		client, err := gateway.NewClient(gateway.Options{
			BaseURL:         cfg.Gateway.BaseURL,
			Token:           cfg.Gateway.Token,
			Timeout:         cfg.Gateway.Timeout,
			BreakerFailures: cfg.Gateway.BreakerFailures,
			BreakerCooldown: cfg.Gateway.BreakerCooldown,
			Limiter:         limiter,
			Tracker:         tr,
			Observer:        metrics,
			Logger:          logger.Named("gateway"),
		})
		if err != nil {
			return nil, err
		}
		gw = client
	}

	a := &App{Metrics: metrics, Tracker: tr}

	opts := submission.Options{
		Statuses: submission.StatusNames{
			EventDraft:      cfg.Statuses.EventDraft,
			TicketAvailable: cfg.Statuses.TicketAvailable,
			CouponAvailable: cfg.Statuses.CouponAvailable,
		},
		Timeout:    cfg.Submission.Timeout,
		Compensate: cfg.Submission.Compensate,
		Logger:     logger.Named("submission"),
		Metrics:    metrics,
	}
	if cfg.JournalPath != "" {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.journal = store
		opts.Journal = store
	}
	a.Submission = submission.New(gw, opts)

	transportOpts := httptransport.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		Logger:         logger.Named("http"),
	}
	if a.journal != nil {
		transportOpts.Runs = a.journal
	}
	h := httptransport.New(a.Submission, eventquery.New(gw, logger.Named("eventquery")), transportOpts)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", metrics.Handler())

	a.Handler = middleware.Chain(mux,
		middleware.Tracing("events-api"),
		middleware.Logging(logger.Named("access")),
		middleware.Recover(logger),
	)
	return a, nil
}

// Close releases the journal.
func (a *App) Close() error {
	if a.journal == nil {
		return nil
	}
	return a.journal.Close()
}
