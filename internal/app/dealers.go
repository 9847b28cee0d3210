package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"dealership/internal/adapters/observability"
	"dealership/internal/domain"
)

type Endpoints struct {
	DealersURL    string
	ReviewsURL    string
	PostReviewURL string
}

type DealerService struct {
	src       domain.DealerSource
	sentiment domain.SentimentAnalyzer // nil: enrichment disabled
	urls      Endpoints
	strict    bool

	budget  time.Duration // total sentiment time per listing; 0: request deadline only
	workers int           // concurrent analyzer calls per listing
}

type Option func(*DealerService)

// WithSentimentBudget caps the time one listing spends on sentiment. Reviews
// still unlabeled when it runs out get neutral.
func WithSentimentBudget(d time.Duration) Option {
	return func(s *DealerService) { s.budget = d }
}

// WithSentimentWorkers bounds concurrent analyzer calls per listing.
func WithSentimentWorkers(n int) Option {
	return func(s *DealerService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewDealerService wires the backend source. a may be nil. With strict set,
// the first malformed record fails the whole call instead of being skipped.
func NewDealerService(src domain.DealerSource, a domain.SentimentAnalyzer, urls Endpoints, strict bool, opts ...Option) *DealerService {
	s := &DealerService{src: src, sentiment: a, urls: urls, strict: strict, workers: 4}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *DealerService) SentimentEnabled() bool { return s.sentiment != nil }

func (s *DealerService) ListDealers(ctx context.Context) ([]domain.CarDealer, error) {
	recs, err := s.src.FetchDealers(ctx, s.urls.DealersURL)
	if err != nil {
		return nil, err
	}
	out := make([]domain.CarDealer, 0, len(recs))
	for i, rec := range recs {
		d, err := mapDealer(rec)
		if err != nil {
			if err := s.skip("dealer", i, err); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, d)
	}
	if len(recs) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w: none of %d dealer records could be mapped", domain.ErrBadResponse, len(recs))
	}
	return out, nil
}

// GetDealerByID does not trust the backend's filtering: it returns the
// record whose id matches, or ErrNotFound.
func (s *DealerService) GetDealerByID(ctx context.Context, id int64) (domain.CarDealer, error) {
	recs, err := s.src.FetchDealer(ctx, s.urls.DealersURL, id)
	if err != nil {
		return domain.CarDealer{}, err
	}
	for i, rec := range recs {
		d, err := mapDealer(rec)
		if err != nil {
			if err := s.skip("dealer", i, err); err != nil {
				return domain.CarDealer{}, err
			}
			continue
		}
		if d.ID == id {
			return d, nil
		}
		log.Debug().Int64("want", id).Int64("got", d.ID).Msg("backend returned a non-matching dealer")
	}
	return domain.CarDealer{}, fmt.Errorf("%w: dealer %d", domain.ErrNotFound, id)
}

func (s *DealerService) ListDealerReviews(ctx context.Context, dealerID int64) ([]domain.DealerReview, error) {
	recs, err := s.src.FetchReviews(ctx, s.urls.ReviewsURL, dealerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DealerReview, 0, len(recs))
	for i, rec := range recs {
		rv, err := mapReview(rec)
		if err != nil {
			if err := s.skip("review", i, err); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, rv)
	}
	if len(recs) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w: none of %d review records could be mapped", domain.ErrBadResponse, len(recs))
	}
	if s.sentiment != nil {
		s.enrich(ctx, out)
	}
	return out, nil
}

type labeled struct {
	idx   int
	label domain.Sentiment
}

// enrich labels reviews with at most s.workers analyzer calls in flight. It
// returns when every review is labeled or when the budget (or ctx) runs out;
// reviews without a label by then get neutral. Late analyzer results are
// dropped.
func (s *DealerService) enrich(ctx context.Context, reviews []domain.DealerReview) {
	if len(reviews) == 0 {
		return
	}
	if s.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.budget)
		defer cancel()
	}

	results := make(chan labeled, len(reviews)) // buffered: late senders never block
	sem := semaphore.NewWeighted(int64(s.workers))
	go func() {
		for i := range reviews {
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			go func(i int, text string) {
				defer sem.Release(1)
				results <- labeled{idx: i, label: s.sentiment.AnalyzeSentiment(ctx, text)}
			}(i, reviews[i].Review)
		}
	}()

	for got := 0; got < len(reviews); got++ {
		select {
		case r := <-results:
			reviews[r.idx].Sentiment = r.label
		case <-ctx.Done():
			missing := 0
			for i := range reviews {
				if reviews[i].Sentiment == "" {
					reviews[i].Sentiment = domain.SentimentNeutral
					missing++
				}
			}
			observability.ObserveSentimentTimeout(missing)
			log.Warn().Err(ctx.Err()).Int("unlabeled", missing).Msg("sentiment budget exhausted, using neutral")
			return
		}
	}
}

// AddReview posts {"review": rv} to the backend for rv.Dealership.
func (s *DealerService) AddReview(ctx context.Context, rv domain.DealerReview) error {
	if err := validateReview(rv); err != nil {
		return err
	}
	rv.Sentiment = "" // computed on read, never stored

	params := url.Values{"dealerId": {strconv.FormatInt(rv.Dealership, 10)}}
	resp, err := s.src.Post(ctx, s.urls.PostReviewURL, map[string]any{"review": rv}, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: dealer %d", domain.ErrNotFound, rv.Dealership)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: post review: remote %d", domain.ErrUnavailable, resp.StatusCode)
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: post review: status %d: %s", domain.ErrBadResponse, resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

func validateReview(rv domain.DealerReview) error {
	switch {
	case rv.Dealership <= 0:
		return fmt.Errorf("%w: dealership is required", domain.ErrInvalidReview)
	case strings.TrimSpace(rv.Name) == "":
		return fmt.Errorf("%w: name is required", domain.ErrInvalidReview)
	case strings.TrimSpace(rv.Review) == "":
		return fmt.Errorf("%w: review text is required", domain.ErrInvalidReview)
	}
	return nil
}

// skip records a malformed record. It returns the error to abort with in
// strict mode, nil otherwise.
func (s *DealerService) skip(record string, idx int, err error) error {
	observability.ObserveMappingError(record)
	if s.strict {
		return fmt.Errorf("%s[%d]: %w", record, idx, err)
	}
	log.Warn().Err(err).Str("record", record).Int("index", idx).Msg("skipping malformed record")
	return nil
}
