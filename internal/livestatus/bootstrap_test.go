package livestatus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBootstrap_SeedsProjections(t *testing.T) {
	sched := testutil.NewFakeScheduler(t0)
	store := NewStore(sched, "")
	synced := t0.Add(-time.Hour)
	backend := testutil.NewMockBackend()
	backend.Queue = &domain.QueueStatus{Total: 4, Active: 1, Pending: 3, WorkersOnline: 2}
	backend.Cache = &domain.CacheStatus{LastSyncTime: &synced}

	NewBootstrap(sched, backend, store, nil, func() bool { return true }).Run(context.Background())
	sched.Flush()

	snap := store.Snapshot()
	assert.Equal(t, *backend.Queue, snap.Queue)
	assert.Equal(t, synced, *snap.Cache.LastSyncTime)
}

func TestBootstrap_PushDataWins(t *testing.T) {
	sched := testutil.NewFakeScheduler(t0)
	sched.SpawnDelay = 100 * time.Millisecond
	store := NewStore(sched, "")
	backend := testutil.NewMockBackend()
	backend.Queue = &domain.QueueStatus{Total: 9}
	logger := &testutil.RecordingLogger{}

	NewBootstrap(sched, backend, store, logger, func() bool { return true }).Run(context.Background())
	NewRouter(store, logger, nil).Route([]byte(`{"type":"queue_status","total_tasks":2,"active_tasks":1,"pending_tasks":1,"workers_online":1}`))
	sched.Advance(time.Second)

	assert.Equal(t, domain.QueueStatus{Total: 2, Active: 1, Pending: 1, WorkersOnline: 1}, store.Snapshot().Queue)
}

func TestBootstrap_FailureIsLogged(t *testing.T) {
	sched := testutil.NewFakeScheduler(t0)
	store := NewStore(sched, "")
	backend := testutil.NewMockBackend()
	backend.QueueErr = errors.New("503 Service Unavailable")
	backend.CacheErr = errors.New("timeout")
	logger := &testutil.RecordingLogger{}

	NewBootstrap(sched, backend, store, logger, func() bool { return true }).Run(context.Background())
	sched.Flush()

	assert.Equal(t, 2, logger.Count("warn"))
	assert.Equal(t, domain.QueueStatus{}, store.Snapshot().Queue)
}

func TestBootstrap_DiscardedAfterTeardown(t *testing.T) {
	sched := testutil.NewFakeScheduler(t0)
	sched.SpawnDelay = 100 * time.Millisecond
	store := NewStore(sched, "")
	backend := testutil.NewMockBackend()
	backend.Queue = &domain.QueueStatus{Total: 9}
	alive := true

	NewBootstrap(sched, backend, store, nil, func() bool { return alive }).Run(context.Background())
	alive = false
	sched.Advance(time.Second)

	assert.Zero(t, store.Snapshot().Queue.Total)
}
