package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog/log"

	"dealership/internal/adapters/cloudfn"
	"dealership/internal/adapters/nlu"
	"dealership/internal/adapters/observability"
	"dealership/internal/app"
	"dealership/internal/domain"
	"dealership/internal/shared"
)

// snapshot writes every dealer and its reviews to stdout as one JSON document.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cfg := shared.Load()

	// logs go to stderr so stdout stays pure JSON
	log.Logger = observability.NewLoggerTo(os.Stderr, cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Str("dealers_url", cfg.DealersURL).
		Int("workers", cfg.Workers).
		Bool("sentiment", cfg.SentimentEnabled).
		Msg("snapshot starting")

	var analyzer domain.SentimentAnalyzer
	if cfg.SentimentEnabled {
		a, err := nlu.New(cfg.NLUURL, cfg.NLUKey, cfg.NLUVersion, cfg.NLUTimeout)
		if err != nil {
			log.Warn().Err(err).Msg("sentiment analyzer unavailable")
		} else {
			analyzer = a
		}
	}
	svc := app.NewDealerService(cloudfn.New(cfg.CFKey, cfg.CFTimeout), analyzer, app.Endpoints{
		DealersURL: cfg.DealersURL,
		ReviewsURL: cfg.ReviewsURL,
	}, cfg.StrictMapping,
		app.WithSentimentBudget(cfg.SentimentBudget),
		app.WithSentimentWorkers(cfg.SentimentWorkers),
	)

	start := time.Now()
	snap, err := svc.Snapshot(ctx, cfg.Workers)
	if err != nil {
		log.Fatal().Err(err).Msg("snapshot failed")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		log.Fatal().Err(err).Msg("write snapshot failed")
	}
	log.Info().Int("dealers", len(snap.Dealers)).Dur("took", time.Since(start)).Msg("snapshot completed")
}
