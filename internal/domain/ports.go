package domain

import (
	"context"
	"net/http"
	"net/url"
)

// DealerSource returns raw backend records; mapping happens in the app layer.
type DealerSource interface {
	FetchDealers(ctx context.Context, url string) ([]map[string]any, error)
	FetchDealer(ctx context.Context, url string, dealerID int64) ([]map[string]any, error)
	FetchReviews(ctx context.Context, url string, dealerID int64) ([]map[string]any, error)
	Post(ctx context.Context, url string, payload any, params url.Values) (*http.Response, error)
}

// SentimentAnalyzer never fails; implementations fall back to SentimentNeutral.
type SentimentAnalyzer interface {
	AnalyzeSentiment(ctx context.Context, text string) Sentiment
}
