package nlu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/go-sdk-core/v5/core"
	"github.com/rs/zerolog/log"
	nluv1 "github.com/watson-developer-cloud/go-sdk/v3/naturallanguageunderstandingv1"

	"dealership/internal/adapters/observability"
	"dealership/internal/domain"
)

const (
	DefaultVersion = "2022-04-07"
	service        = "nlu"
	endpoint       = "/v1/analyze"
)

// Analyzer labels review text with document-level sentiment.
type Analyzer struct {
	svc     *nluv1.NaturalLanguageUnderstandingV1
	timeout time.Duration
}

// New authenticates with an IAM API key; the SDK exchanges it for a bearer
// token and refreshes it as needed.
func New(serviceURL, apiKey, version string, timeout time.Duration) (*Analyzer, error) {
	if apiKey == "" {
		return nil, errors.New("nlu: API key is required")
	}
	return NewWithAuthenticator(serviceURL, version, &core.IamAuthenticator{ApiKey: apiKey}, timeout)
}

func NewWithAuthenticator(serviceURL, version string, auth core.Authenticator, timeout time.Duration) (*Analyzer, error) {
	if serviceURL == "" {
		return nil, errors.New("nlu: service URL is required")
	}
	if version == "" {
		version = DefaultVersion
	}
	svc, err := nluv1.NewNaturalLanguageUnderstandingV1(&nluv1.NaturalLanguageUnderstandingV1Options{
		URL:           serviceURL,
		Version:       core.StringPtr(version),
		Authenticator: auth,
	})
	if err != nil {
		return nil, fmt.Errorf("nlu: %w", err)
	}
	return &Analyzer{svc: svc, timeout: timeout}, nil
}

// AnalyzeSentiment returns sentiment.document.label for text. Every failure,
// including empty text and labels outside the known set, yields neutral.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) (label domain.Sentiment) {
	defer func() {
		if r := recover(); r != nil {
			label = fallback(fmt.Errorf("panic: %v", r))
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return fallback(errors.New("empty text"))
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	res, resp, err := a.svc.AnalyzeWithContext(ctx, &nluv1.AnalyzeOptions{
		Text: core.StringPtr(text),
		Features: &nluv1.Features{
			Sentiment: &nluv1.SentimentOptions{
				Document: core.BoolPtr(true),
				Targets:  []string{text},
			},
		},
	})
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	observability.ObserveExternal(service, endpoint, status, time.Since(start))
	if err != nil {
		return fallback(err)
	}
	if res == nil || res.Sentiment == nil || res.Sentiment.Document == nil || res.Sentiment.Document.Label == nil {
		return fallback(errors.New("response has no sentiment.document.label"))
	}

	raw := strings.ToLower(strings.TrimSpace(*res.Sentiment.Document.Label))
	label = domain.ParseSentiment(raw)
	if string(label) != raw {
		return fallback(fmt.Errorf("unknown label %q", raw))
	}
	observability.ObserveSentiment(string(label), false)
	return label
}

func fallback(err error) domain.Sentiment {
	log.Warn().Err(err).Msg("sentiment analysis failed, using neutral")
	observability.ObserveSentiment(string(domain.SentimentNeutral), true)
	return domain.SentimentNeutral
}
