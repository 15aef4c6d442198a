package livestatus

import (
	"context"

	"github.com/runoshun/adr-sync/internal/domain"
)

// Bootstrap seeds the queue and cache projections with one REST read each.
// A result only applies if nothing (typically a push event) has written
// that projection first; failures are logged and ignored.
type Bootstrap struct {
	sched   domain.Scheduler
	fetcher domain.QueueStatusFetcher
	store   *Store
	logger  domain.Logger
	alive   func() bool
}

// NewBootstrap creates a Bootstrap. alive gates every continuation.
func NewBootstrap(sched domain.Scheduler, fetcher domain.QueueStatusFetcher, store *Store, logger domain.Logger, alive func() bool) *Bootstrap {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &Bootstrap{sched: sched, fetcher: fetcher, store: store, logger: logger, alive: alive}
}

// Run issues both fetches. Must be called on the loop.
func (b *Bootstrap) Run(ctx context.Context) {
	b.sched.Spawn(func() func() {
		q, err := b.fetcher.FetchQueueStatus(ctx)
		return func() {
			if !b.alive() {
				return
			}
			if err != nil {
				b.logger.Warn("", "bootstrap", "queue status: "+err.Error())
				return
			}
			if !b.store.SeedQueue(*q) {
				b.logger.Debug("", "bootstrap", "queue status discarded; push data is newer")
			}
		}
	})

	b.sched.Spawn(func() func() {
		c, err := b.fetcher.FetchCacheStatus(ctx)
		return func() {
			if !b.alive() {
				return
			}
			if err != nil {
				b.logger.Warn("", "bootstrap", "cache status: "+err.Error())
				return
			}
			if !b.store.SeedCache(*c) {
				b.logger.Debug("", "bootstrap", "cache status discarded; newer value present")
			}
		}
	})
}
