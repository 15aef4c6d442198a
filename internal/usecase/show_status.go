package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/runoshun/adr-sync/internal/domain"
)

// ShowStatusInput contains the input for the ShowStatus use case.
type ShowStatusInput struct{}

// ShowStatusOutput is a one-shot read of the aggregate projections.
type ShowStatusOutput struct {
	Queue domain.QueueStatus `json:"queue" yaml:"queue"`
	Cache domain.CacheStatus `json:"cache" yaml:"cache"`
}

// ShowStatus reads the queue and cache status once.
type ShowStatus struct {
	fetcher domain.QueueStatusFetcher
}

// NewShowStatus creates a new ShowStatus use case.
func NewShowStatus(fetcher domain.QueueStatusFetcher) *ShowStatus {
	return &ShowStatus{fetcher: fetcher}
}

// Execute fetches both projections concurrently.
func (uc *ShowStatus) Execute(ctx context.Context, _ ShowStatusInput) (*ShowStatusOutput, error) {
	var (
		wg       sync.WaitGroup
		queue    *domain.QueueStatus
		cache    *domain.CacheStatus
		queueErr error
		cacheErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		queue, queueErr = uc.fetcher.FetchQueueStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		cache, cacheErr = uc.fetcher.FetchCacheStatus(ctx)
	}()
	wg.Wait()

	if queueErr != nil || cacheErr != nil {
		var errs []error
		if queueErr != nil {
			errs = append(errs, fmt.Errorf("queue status: %w", queueErr))
		}
		if cacheErr != nil {
			errs = append(errs, fmt.Errorf("cache status: %w", cacheErr))
		}
		return nil, errors.Join(errs...)
	}
	return &ShowStatusOutput{Queue: *queue, Cache: *cache}, nil
}
