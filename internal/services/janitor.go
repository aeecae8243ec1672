package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type StaleDraftStore interface {
	ListStale(ctx context.Context, before time.Time, limit int) ([]string, error)
	Delete(ctx context.Context, id string) error
}

const janitorBatch = 100

// DraftJanitor periodically removes drafts that were abandoned before being
// published, together with their staged files.
type DraftJanitor struct {
	store    StaleDraftStore
	files    FileStore
	ttl      time.Duration
	interval time.Duration
	log      *zap.Logger
	now      func() time.Time

	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	started bool
}

func NewDraftJanitor(store StaleDraftStore, files FileStore, ttl, interval time.Duration, log *zap.Logger) *DraftJanitor {
	return &DraftJanitor{
		store:    store,
		files:    files,
		ttl:      ttl,
		interval: interval,
		log:      log.Named("janitor"),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs a sweep every interval until Stop is called.
func (j *DraftJanitor) Start() {
	j.started = true
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), j.interval)
				if _, err := j.Sweep(ctx); err != nil {
					j.log.Error("Draft sweep failed", zap.Error(err))
				}
				cancel()
			case <-j.stop:
				return
			}
		}
	}()
}

// Stop ends the loop started by Start and waits for it to exit.
func (j *DraftJanitor) Stop() {
	j.once.Do(func() {
		close(j.stop)
		if j.started {
			<-j.done
		}
	})
}

// Sweep deletes every draft older than the TTL and returns how many went.
func (j *DraftJanitor) Sweep(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.ttl)
	removed := 0
	for {
		ids, err := j.store.ListStale(ctx, cutoff, janitorBatch)
		if err != nil {
			return removed, err
		}
		for _, id := range ids {
			if err := j.store.Delete(ctx, id); err != nil {
				return removed, err
			}
			if err := j.files.DeleteDraft(id); err != nil {
				j.log.Warn("Failed to delete files of stale draft", zap.String("draft_id", id), zap.Error(err))
			}
			removed++
		}
		if len(ids) < janitorBatch {
			break
		}
	}
	if removed > 0 {
		j.log.Info("Swept stale drafts", zap.Int("count", removed))
	}
	return removed, nil
}
