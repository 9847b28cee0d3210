package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"dealership/internal/adapters/cloudfn"
	server "dealership/internal/adapters/http_server"
	"dealership/internal/adapters/nlu"
	"dealership/internal/adapters/observability"
	"dealership/internal/app"
	"dealership/internal/domain"
	"dealership/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// deps
	var analyzer domain.SentimentAnalyzer
	if cfg.SentimentEnabled {
		a, err := nlu.New(cfg.NLUURL, cfg.NLUKey, cfg.NLUVersion, cfg.NLUTimeout)
		if err != nil {
			log.Warn().Err(err).Msg("sentiment analyzer unavailable, reviews will carry no sentiment")
		} else {
			analyzer = a
		}
	}
	svc := app.NewDealerService(cloudfn.New(cfg.CFKey, cfg.CFTimeout), analyzer, app.Endpoints{
		DealersURL:    cfg.DealersURL,
		ReviewsURL:    cfg.ReviewsURL,
		PostReviewURL: cfg.PostReviewURL,
	}, cfg.StrictMapping,
		app.WithSentimentBudget(cfg.SentimentBudget),
		app.WithSentimentWorkers(cfg.SentimentWorkers),
	)

	// http
	srv := server.New(cfg.RequestTimeout())
	if cfg.MetricsAddr == "" {
		srv.Mount("/metrics", observability.MetricsHandler(reg))
	}
	srv.MountHandlers(&server.Handlers{S: svc})

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Bool("sentiment", svc.SentimentEnabled()).
		Bool("strict_mapping", cfg.StrictMapping).
		Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
