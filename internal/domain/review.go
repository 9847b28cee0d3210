package domain

import "strings"

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment maps a service label onto the closed label set.
// Anything unrecognized is neutral.
func ParseSentiment(label string) Sentiment {
	switch s := Sentiment(strings.ToLower(strings.TrimSpace(label))); s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return s
	default:
		return SentimentNeutral
	}
}

type DealerReview struct {
	Dealership   int64   `json:"dealership"`
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Purchase     bool    `json:"purchase"`
	Review       string  `json:"review"`
	PurchaseDate *string `json:"purchase_date,omitempty"`
	CarMake      *string `json:"car_make,omitempty"`
	CarModel     *string `json:"car_model,omitempty"`
	CarYear      *int    `json:"car_year,omitempty"`

	// empty until an analyzer has run
	Sentiment Sentiment `json:"sentiment,omitempty"`
}
