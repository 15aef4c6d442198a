package livestatus

import (
	"errors"
	"testing"
	"time"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type connFixture struct {
	sched    *testutil.FakeScheduler
	dialer   *testutil.FakePushDialer
	mgr      *ConnectionManager
	states   []domain.ConnectionState
	messages []string
}

func newConnFixture() *connFixture {
	f := &connFixture{
		sched:  testutil.NewFakeScheduler(t0),
		dialer: testutil.NewFakePushDialer(),
	}
	f.mgr = NewConnectionManager(f.sched, f.dialer, nil, ConnectionOptions{URL: "ws://backend:8001/ws"},
		func(s domain.ConnectionState) { f.states = append(f.states, s) },
		func(p []byte) { f.messages = append(f.messages, string(p)) },
	)
	return f
}

func TestBackoffDelay(t *testing.T) {
	base, ceiling := time.Second, 30*time.Second
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{6, 30 * time.Second},
		{100, 30 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BackoffDelay(tt.attempts, base, ceiling), "attempts=%d", tt.attempts)
	}
}

func TestConnectionManager_ReconnectDelaysFollowBackoff(t *testing.T) {
	f := newConnFixture()
	f.mgr.Connect()

	var delays []time.Duration
	for n := 1; n <= 7; n++ {
		f.dialer.Last().Drop()
		f.sched.Flush()

		pending := f.sched.PendingTimers()
		require.Len(t, pending, 1, "attempt %d", n)
		delays = append(delays, pending[0])

		// Delay before attempt n is min(1000*2^(n-1), 30000) ms.
		want := time.Duration(1000*(1<<(n-1))) * time.Millisecond
		if want > 30*time.Second {
			want = 30 * time.Second
		}
		assert.Equal(t, want, pending[0], "attempt %d", n)

		f.sched.Advance(pending[0])
		assert.Equal(t, n+1, f.dialer.Count())
		assert.Equal(t, domain.ConnConnecting, f.mgr.State())
	}
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 30 * time.Second, 30 * time.Second,
	}, delays)
}

func TestConnectionManager_CloseTwiceThenSucceed(t *testing.T) {
	f := newConnFixture()
	f.mgr.Connect()
	f.dialer.Last().Accept()
	f.sched.Flush()

	require.Equal(t, domain.ConnOpen, f.mgr.State())
	assert.Equal(t, 0, f.mgr.Attempts())
	assert.Equal(t, []time.Duration{30 * time.Second}, f.sched.PendingTimers(), "keep-alive runs while open")

	// First close: keep-alive stops, one reconnect scheduled.
	f.dialer.Last().Drop()
	f.sched.Flush()
	assert.Equal(t, domain.ConnClosed, f.mgr.State())
	assert.Equal(t, 1, f.mgr.Attempts())
	assert.Equal(t, []time.Duration{time.Second}, f.sched.PendingTimers())

	// Second attempt fails before opening.
	f.sched.Advance(time.Second)
	f.dialer.Last().Drop()
	f.sched.Flush()
	assert.Equal(t, 2, f.mgr.Attempts())
	assert.Equal(t, []time.Duration{2 * time.Second}, f.sched.PendingTimers())

	// Third attempt succeeds.
	f.sched.Advance(2 * time.Second)
	require.Equal(t, 3, f.dialer.Count())
	assert.Equal(t, 2, f.mgr.Attempts())
	f.dialer.Last().Accept()
	f.sched.Flush()

	assert.Equal(t, domain.ConnOpen, f.mgr.State())
	assert.Equal(t, 0, f.mgr.Attempts())
	assert.Equal(t, []time.Duration{30 * time.Second}, f.sched.PendingTimers())

	assert.Equal(t, []domain.ConnectionState{
		domain.ConnConnecting, domain.ConnOpen, domain.ConnClosed,
		domain.ConnConnecting, domain.ConnClosed,
		domain.ConnConnecting, domain.ConnOpen,
	}, f.states)
}

func TestConnectionManager_KeepaliveOnlyWhileOpen(t *testing.T) {
	f := newConnFixture()
	f.mgr.Connect()
	first := f.dialer.Last()
	first.Accept()
	f.sched.Flush()

	f.sched.Advance(30 * time.Second)
	f.sched.Advance(30 * time.Second)
	assert.Equal(t, []string{KeepaliveToken, KeepaliveToken}, first.Sent())

	first.Drop()
	f.sched.Flush()
	f.sched.Advance(10 * time.Second) // reconnect fires at 1s, second channel never opens
	f.sched.Advance(60 * time.Second)

	assert.Len(t, first.Sent(), 2)
	assert.Empty(t, f.dialer.Last().Sent())
}

func TestConnectionManager_ConnectIsIdempotent(t *testing.T) {
	f := newConnFixture()
	f.mgr.Connect()
	f.mgr.Connect()
	assert.Equal(t, 1, f.dialer.Count(), "no second dial while connecting")

	f.dialer.Last().Accept()
	f.sched.Flush()
	f.mgr.Connect()
	assert.Equal(t, 1, f.dialer.Count(), "no second dial while open")
	assert.Equal(t, "ws://backend:8001/ws", f.dialer.URLs[0])
}

func TestConnectionManager_ErrorThenCloseSchedulesOneReconnect(t *testing.T) {
	f := newConnFixture()
	f.mgr.Connect()
	ch := f.dialer.Last()
	ch.Accept()
	f.sched.Flush()

	ch.RawClose(errors.New("read: connection reset"))
	ch.RawClose(nil)
	f.sched.Flush()

	assert.Equal(t, 1, f.mgr.Attempts())
	assert.Equal(t, []time.Duration{time.Second}, f.sched.PendingTimers())
}

func TestConnectionManager_IgnoresStaleChannel(t *testing.T) {
	f := newConnFixture()
	f.mgr.Connect()
	old := f.dialer.Last()
	old.Accept()
	f.sched.Flush()
	old.Drop()
	f.sched.Flush()
	f.sched.Advance(time.Second)

	fresh := f.dialer.Last()
	require.NotSame(t, old, fresh)

	old.Deliver(`{"type":"queue_status"}`)
	old.Accept()
	f.sched.Flush()
	assert.Empty(t, f.messages)
	assert.Equal(t, domain.ConnConnecting, f.mgr.State())

	fresh.Accept()
	fresh.Deliver(`{"type":"queue_status"}`)
	f.sched.Flush()
	assert.Equal(t, []string{`{"type":"queue_status"}`}, f.messages)
}

func TestConnectionManager_TeardownDuringDial(t *testing.T) {
	f := newConnFixture()
	f.mgr.Connect()
	ch := f.dialer.Last()

	f.mgr.Teardown()
	assert.True(t, ch.IsClosed())

	// A handshake completing after teardown changes nothing.
	ch.Accept()
	f.sched.Flush()
	assert.Equal(t, domain.ConnClosed, f.mgr.State())
	assert.Zero(t, f.sched.PendingCount())

	f.mgr.Connect()
	assert.Equal(t, 1, f.dialer.Count(), "inert after teardown")
}

func TestConnectionManager_TeardownCancelsPendingReconnect(t *testing.T) {
	f := newConnFixture()
	f.mgr.Connect()
	f.dialer.Last().Drop()
	f.sched.Flush()
	require.Equal(t, 1, f.sched.PendingCount())

	f.mgr.Teardown()
	assert.Zero(t, f.sched.PendingCount())

	f.sched.Advance(time.Minute)
	assert.Equal(t, 1, f.dialer.Count())
}

func TestConnectionManager_TeardownStopsKeepalive(t *testing.T) {
	f := newConnFixture()
	f.mgr.Connect()
	ch := f.dialer.Last()
	ch.Accept()
	f.sched.Flush()

	f.mgr.Teardown()
	f.sched.Flush()
	assert.Zero(t, f.sched.PendingCount())
	assert.True(t, ch.IsClosed())
	assert.Equal(t, domain.ConnClosed, f.mgr.State())

	f.sched.Advance(time.Minute)
	assert.Empty(t, ch.Sent())
}
