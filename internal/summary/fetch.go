package summary

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"plexdigest/internal/tautulli"
	"plexdigest/internal/util"
)

// Guardrails bounding the worst-case cost of the fetch loop, independent of
// the correctness-driven stopping conditions.
const (
	maxFetchIterations  = 50
	maxFetchCount       = 10000
	fetchIterationDelay = 200 * time.Millisecond
)

// Source is the slice of the Tautulli client the fetcher drives.
type Source interface {
	GetRecentlyAdded(days, count int) (json.RawMessage, error)
}

// Fetcher retrieves all items added within a trailing window from a source
// that cannot filter by date server-side: it requests progressively larger
// pages until the oldest item falls outside the window, then filters
// client-side against the cutoff timestamp.
type Fetcher struct {
	src    Source
	logger *log.Logger
	sleep  func(time.Duration)
	now    func() time.Time
}

func NewFetcher(src Source, appLogger *log.Logger) *Fetcher {
	if appLogger == nil {
		appLogger = log.Default()
	}
	return &Fetcher{
		src:    src,
		logger: appLogger,
		sleep:  time.Sleep,
		now:    time.Now,
	}
}

// SetClock swaps the sleep and clock functions; tests use it to avoid real
// delays and pin the cutoff.
func (f *Fetcher) SetClock(now func() time.Time, sleep func(time.Duration)) {
	if now != nil {
		f.now = now
	}
	if sleep != nil {
		f.sleep = sleep
	}
}

// BatchParams picks the initial page size and growth increment for a window
// size. An explicit override replaces both values.
func BatchParams(days, override int) (initial, increment int) {
	if override > 0 {
		return override, override
	}
	switch {
	case days <= 7:
		return 100, 100
	case days <= 30:
		return 200, 200
	default:
		return 500, 500
	}
}

// FetchItems returns every item added within the last days days.
// initialBatchSize > 0 overrides the page-size table.
func (f *Fetcher) FetchItems(ctx context.Context, days, initialBatchSize int) ([]tautulli.MediaItem, error) {
	cutoff := f.now().UTC().Add(-time.Duration(days) * 24 * time.Hour).Unix()

	initial, increment := BatchParams(days, initialBatchSize)
	currentCount := initial
	iteration := 0
	var items []tautulli.MediaItem

	for {
		iteration++
		if iteration > maxFetchIterations {
			f.logger.Printf("  %s Reached max fetch iterations (%d); proceeding with latest batch and date filtering",
				util.YellowBold("[FETCH WARN]"), maxFetchIterations)
			break
		}

		// Short pause between iterations so the API is not hammered.
		if iteration > 1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			f.sleep(fetchIterationDelay)
		}

		raw, err := f.src.GetRecentlyAdded(days, currentCount)
		if err != nil {
			return nil, err
		}

		batch, ok := tautulli.DecodeRecentlyAdded(raw)
		if !ok {
			batch = nil
		}
		items = batch

		if len(items) == 0 {
			break
		}

		// Fewer items than requested means the source is exhausted: it
		// pages by size only, so a short page is the last page.
		if len(items) < currentCount {
			break
		}

		oldest := int64(items[len(items)-1].AddedAt)
		if oldest < cutoff {
			// Oldest item is outside the window; coverage is complete.
			break
		}

		next := currentCount + increment
		if next > maxFetchCount {
			f.logger.Printf("  %s Reached max fetch count limit (%d); proceeding with current results",
				util.YellowBold("[FETCH WARN]"), maxFetchCount)
			break
		}
		currentCount = next
	}

	itemsBeforeFilter := len(items)
	filtered := make([]tautulli.MediaItem, 0, len(items))
	for _, item := range items {
		if int64(item.AddedAt) >= cutoff {
			filtered = append(filtered, item)
		}
	}

	f.logger.Printf("  %s Retrieved %d items in %d %s, filtered to %s items from last %d days",
		util.Cyan("[FETCH]"), itemsBeforeFilter, iteration,
		util.Plural(iteration, "iteration", "iterations"),
		util.Bold(len(filtered)), days)

	return filtered, nil
}
