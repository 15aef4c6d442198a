package loop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runLoop(t *testing.T) *Loop {
	t.Helper()
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return l
}

func TestLoop_PostRunsInOrder(t *testing.T) {
	l := runLoop(t)

	var mu sync.Mutex
	var got []int
	finished := make(chan struct{})
	for i := range 5 {
		l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	l.Post(func() { close(finished) })

	<-finished
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoop_AfterFuncFires(t *testing.T) {
	l := runLoop(t)

	fired := make(chan time.Time, 1)
	start := time.Now()
	l.AfterFunc(20*time.Millisecond, func() { fired <- time.Now() })

	select {
	case at := <-fired:
		assert.GreaterOrEqual(t, at.Sub(start), 20*time.Millisecond)
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestLoop_StoppedTimerNeverRuns(t *testing.T) {
	l := runLoop(t)

	ran := make(chan struct{}, 1)
	stopped := make(chan bool, 1)
	l.Post(func() {
		tm := l.AfterFunc(10*time.Millisecond, func() { ran <- struct{}{} })
		stopped <- tm.Stop()
		assert.False(t, tm.Stop(), "second Stop")
	})

	require.True(t, <-stopped)
	select {
	case <-ran:
		t.Fatal("stopped timer ran")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestLoop_StopAfterFireReturnsFalse(t *testing.T) {
	l := runLoop(t)

	fired := make(chan struct{})
	tm := l.AfterFunc(time.Millisecond, func() { close(fired) })
	<-fired
	assert.False(t, tm.Stop())
}

func TestLoop_SpawnContinuationRunsOnLoop(t *testing.T) {
	l := runLoop(t)

	// Every loop callback increments without a lock; the race detector
	// would flag a continuation running off the loop.
	counter := 0
	results := make(chan int, 1)
	for range 10 {
		l.Spawn(func() func() {
			time.Sleep(time.Millisecond)
			return func() { counter++ }
		})
	}
	l.Wait()
	l.Post(func() { results <- counter })
	assert.Equal(t, 10, <-results)
}

func TestLoop_StopEndsRun(t *testing.T) {
	l := New()
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	l.Post(l.Stop)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	// Posting after Stop is ignored.
	l.Post(func() { t.Error("ran after stop") })
}
