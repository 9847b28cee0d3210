package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"dealership/internal/domain"
)

// DealerSnapshot is one dealer with the reviews known at capture time.
// Error is set when the reviews could not be read; Reviews is then nil.
type DealerSnapshot struct {
	Dealer  domain.CarDealer      `json:"dealer"`
	Reviews []domain.DealerReview `json:"reviews"`
	Error   string                `json:"error,omitempty"`
}

type Snapshot struct {
	TakenAt time.Time        `json:"taken_at"`
	Dealers []DealerSnapshot `json:"dealers"`
}

// Snapshot lists every dealer, then fetches reviews for up to workers dealers
// at a time. A failed review listing is recorded on its dealer and does not
// fail the snapshot; a failed dealer listing does.
func (s *DealerService) Snapshot(ctx context.Context, workers int) (Snapshot, error) {
	dealers, err := s.ListDealers(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	if workers < 1 {
		workers = 1
	}

	out := Snapshot{TakenAt: time.Now().UTC(), Dealers: make([]DealerSnapshot, len(dealers))}
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, d := range dealers {
		out.Dealers[i].Dealer = d

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return Snapshot{}, err
		}
		wg.Add(1)
		go func(slot *DealerSnapshot) {
			defer wg.Done()
			defer sem.Release(1)

			reviews, err := s.ListDealerReviews(ctx, slot.Dealer.ID)
			if err != nil {
				log.Warn().Int64("dealer_id", slot.Dealer.ID).Err(err).Msg("reviews unavailable for snapshot")
				slot.Error = err.Error()
				return
			}
			slot.Reviews = reviews
		}(&out.Dealers[i])
	}

	wg.Wait()
	return out, nil
}
