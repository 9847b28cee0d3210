package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string // empty: /metrics is served on HTTPAddr

	DealersURL    string
	ReviewsURL    string
	PostReviewURL string
	CFKey         string
	CFTimeout     time.Duration
	StrictMapping bool

	NLUURL           string
	NLUKey           string
	NLUVersion       string
	NLUTimeout       time.Duration // per analyzer call
	SentimentBudget  time.Duration // all analyzer calls of one review listing
	SentimentWorkers int
	SentimentEnabled bool

	Workers int
}

// Load reads the process environment, after merging a .env file from the
// working directory when one exists. Variables already set win over .env.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("ignoring unreadable .env")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		LogLevel:      env("LOG_LEVEL", "info"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ""),
		DealersURL:    env("CF_DEALERS_URL", "http://localhost:3000/dealerships/get"),
		ReviewsURL:    env("CF_REVIEWS_URL", "http://localhost:5000/api/get_reviews"),
		PostReviewURL: env("CF_REVIEW_POST_URL", "http://localhost:5000/api/post_review"),
		CFKey:         env("CF_API_KEY", ""),
		CFTimeout:     time.Duration(atoi("CF_TIMEOUT_SECONDS", 10)) * time.Second,
		StrictMapping: boolean("CF_STRICT_MAPPING", false),
		NLUURL:        env("NLU_URL", ""),
		NLUKey:        env("NLU_API_KEY", ""),
		NLUVersion:    env("NLU_VERSION", "2022-04-07"),
		Workers:       atoi("SNAPSHOT_WORKERS", 4),

		NLUTimeout:       time.Duration(atoi("NLU_TIMEOUT_SECONDS", 5)) * time.Second,
		SentimentBudget:  time.Duration(atoi("SENTIMENT_BUDGET_SECONDS", 8)) * time.Second,
		SentimentWorkers: atoi("SENTIMENT_WORKERS", 4),
	}
	c.SentimentEnabled = boolean("SENTIMENT_ENABLED", c.NLUKey != "")

	if c.NLUKey == "" {
		log.Warn().Msg("NLU_API_KEY is empty, sentiment disabled")
		c.SentimentEnabled = false
	} else if c.SentimentEnabled && c.NLUURL == "" {
		log.Warn().Msg("NLU_URL is empty, sentiment disabled")
		c.SentimentEnabled = false
	}
	if c.CFTimeout <= 0 {
		c.CFTimeout = 10 * time.Second
	}
	if c.NLUTimeout <= 0 {
		c.NLUTimeout = 5 * time.Second
	}
	if c.SentimentBudget <= 0 {
		c.SentimentBudget = 8 * time.Second
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.SentimentWorkers < 1 {
		c.SentimentWorkers = 1
	}
	return c
}

// RequestTimeout is the per-request deadline for the API: long enough for the
// backend call and the sentiment budget to each fail on their own terms.
func (c Config) RequestTimeout() time.Duration {
	return c.CFTimeout + c.SentimentBudget + 2*time.Second
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func boolean(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not a boolean, using default")
		return def
	}
	return b
}
