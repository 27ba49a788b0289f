package history

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"boltalka/internal/models"
)

const DefaultPageSize = 50

type Fetcher interface {
	History(ctx context.Context, roomID string, limit, offset int) ([]models.Message, error)
}

type Sink interface {
	LoadHistory(page []models.Message) bool
}

// Coordinator folds one page of past messages into the message store, exactly
// once per room activation. The history provider returns newest-first; the
// coordinator reverses the page before handing it to the store.
type Coordinator struct {
	fetcher Fetcher
	sink    Sink
	limit   int
	log     *slog.Logger

	merged atomic.Bool
}

func New(fetcher Fetcher, sink Sink, limit int, logger *slog.Logger) *Coordinator {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		fetcher: fetcher,
		sink:    sink,
		limit:   limit,
		log:     logger,
	}
}

// Load fetches and merges the page. A fetch failure is the one error this
// core surfaces to callers; live messaging is unaffected by it. Concurrent
// or repeated completions merge at most once: the guard is a one-shot latch,
// not a counter.
func (c *Coordinator) Load(ctx context.Context, roomID string) error {
	page, err := c.fetcher.History(ctx, roomID, c.limit, 0)
	if err != nil {
		return fmt.Errorf("failed to fetch history for %q: %w", roomID, err)
	}

	if !c.merged.CompareAndSwap(false, true) {
		c.log.Debug("history already merged, discarding page", "room_id", roomID)
		return nil
	}

	slices.Reverse(page)
	c.sink.LoadHistory(page)
	c.log.Debug("history merged", "room_id", roomID, "count", len(page))
	return nil
}

func (c *Coordinator) Merged() bool {
	return c.merged.Load()
}

// Reset clears the merge latch; called together with the store reset when
// the room identity changes.
func (c *Coordinator) Reset() {
	c.merged.Store(false)
}
