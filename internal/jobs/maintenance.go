package jobs

import (
	"context"
	"log"
	"time"

	"peanut/internal/history"
	"peanut/internal/respcache"
)

// CacheSweepJob removes expired response cache entries from disk
type CacheSweepJob struct {
	cache *respcache.Cache
}

// NewCacheSweepJob creates the cache sweep job
func NewCacheSweepJob(cache *respcache.Cache) *CacheSweepJob {
	return &CacheSweepJob{cache: cache}
}

func (j *CacheSweepJob) Name() string { return "cache-sweep" }

func (j *CacheSweepJob) Run(_ context.Context) error {
	removed := j.cache.Sweep()
	if removed > 0 {
		log.Printf("🧹 [JOBS] Swept %d expired cache entries", removed)
	}
	return nil
}

// HistoryPruneJob deletes conversation turns older than the retention window
type HistoryPruneJob struct {
	store     *history.Store
	retention time.Duration
}

// NewHistoryPruneJob creates the history prune job
func NewHistoryPruneJob(store *history.Store, retention time.Duration) *HistoryPruneJob {
	return &HistoryPruneJob{store: store, retention: retention}
}

func (j *HistoryPruneJob) Name() string { return "history-prune" }

func (j *HistoryPruneJob) Run(_ context.Context) error {
	pruned, err := j.store.Prune(j.retention)
	if err != nil {
		return err
	}
	if pruned > 0 {
		log.Printf("🧹 [JOBS] Pruned %d old conversation turns", pruned)
	}
	return nil
}
