package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShowStatus_Execute(t *testing.T) {
	synced := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	backend := testutil.NewMockBackend()
	backend.Queue = &domain.QueueStatus{Total: 3, Active: 1, Pending: 2, WorkersOnline: 2}
	backend.Cache = &domain.CacheStatus{LastSyncTime: &synced}
	uc := NewShowStatus(backend)

	out, err := uc.Execute(context.Background(), ShowStatusInput{})

	require.NoError(t, err)
	assert.Equal(t, 3, out.Queue.Total)
	assert.Equal(t, 2, out.Queue.WorkersOnline)
	require.NotNil(t, out.Cache.LastSyncTime)
	assert.True(t, synced.Equal(*out.Cache.LastSyncTime))
	assert.Equal(t, 1, backend.QueueCalls)
	assert.Equal(t, 1, backend.CacheCalls)
}

func TestShowStatus_Execute_JoinsErrors(t *testing.T) {
	queueErr := errors.New("queue down")
	cacheErr := errors.New("cache down")
	backend := testutil.NewMockBackend()
	backend.QueueErr = queueErr
	backend.CacheErr = cacheErr
	uc := NewShowStatus(backend)

	_, err := uc.Execute(context.Background(), ShowStatusInput{})

	require.Error(t, err)
	assert.ErrorIs(t, err, queueErr)
	assert.ErrorIs(t, err, cacheErr)
}

func TestShowStatus_Execute_PartialFailure(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.CacheErr = errors.New("cache down")
	uc := NewShowStatus(backend)

	_, err := uc.Execute(context.Background(), ShowStatusInput{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache status")
	assert.NotContains(t, err.Error(), "queue status")
}
