package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/infra/loop"
	"github.com/runoshun/adr-sync/internal/infra/restapi"
	"github.com/runoshun/adr-sync/internal/infra/wsclient"
	"github.com/runoshun/adr-sync/internal/livestatus"
)

func startServer(t *testing.T, opts Options) (*Server, *httptest.Server, *restapi.Client) {
	t.Helper()
	s := New(opts)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.closeClients()
		srv.Close()
	})
	c, err := restapi.New(srv.URL, 5*time.Second)
	require.NoError(t, err)
	return s, srv, c
}

func TestServer_TaskLifecycle(t *testing.T) {
	s, _, c := startServer(t, Options{Steps: 2})
	ctx := context.Background()

	created, err := c.SubmitTask(ctx, domain.KindGeneration, []byte(`{"title":"Adopt gRPC"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, created.Status)

	q, err := c.FetchQueueStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueStatus{Total: 1, Pending: 1, WorkersOnline: 1}, *q)

	s.Step()
	resp, err := c.FetchTaskStatus(ctx, created.TaskID, domain.KindGeneration)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProgress, resp.Status)
	assert.Equal(t, "Step 1/2", resp.Message)

	cache, err := c.FetchCacheStatus(ctx)
	require.NoError(t, err)
	assert.True(t, cache.IsRebuilding)

	s.Step()
	s.Step()
	resp, err = c.FetchTaskStatus(ctx, created.TaskID, domain.KindGeneration)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resp.Status)

	n, err := c.ReloadRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServer_StatusEndpointPerKind(t *testing.T) {
	s, _, c := startServer(t, Options{})
	ctx := context.Background()
	refinement := s.Submit(domain.KindRefinement, "")

	resp, err := c.FetchTaskStatus(ctx, refinement.TaskID, domain.KindRefinement)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusQueued, resp.Status)

	_, err = c.FetchTaskStatus(ctx, refinement.TaskID, domain.KindAnalysis)
	var httpErr *restapi.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestServer_FailEvery(t *testing.T) {
	s, _, c := startServer(t, Options{Steps: 1, FailEvery: 2, Workers: 2})
	ctx := context.Background()
	first := s.Submit(domain.KindAnalysis, "")
	second := s.Submit(domain.KindAnalysis, "")

	s.Step()
	s.Step()

	resp, err := c.FetchTaskStatus(ctx, first.TaskID, domain.KindAnalysis)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resp.Status)

	resp, err = c.FetchTaskStatus(ctx, second.TaskID, domain.KindAnalysis)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, resp.Status)
	assert.Equal(t, "Simulated failure", resp.Message)
}

func TestServer_RejectsUnknownKind(t *testing.T) {
	_, srv, _ := startServer(t, Options{})

	resp, err := http.Post(srv.URL+"/api/summary", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_PushBroadcast(t *testing.T) {
	s, srv, _ := startServer(t, Options{})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + domain.DefaultPushPath

	opened := make(chan struct{}, 1)
	frames := make(chan string, 16)
	ch := wsclient.NewDialer().Open(url, domain.PushHandlers{
		OnOpen:    func() { opened <- struct{}{} },
		OnMessage: func(p []byte) { frames <- string(p) },
		OnClose:   func(error) {},
	})
	defer func() { _ = ch.Close() }()

	<-opened
	var first livestatus.QueueStatusMessage
	require.NoError(t, json.Unmarshal([]byte(<-frames), &first))
	assert.Equal(t, livestatus.MsgQueueStatus, first.Type)

	require.NoError(t, ch.Send([]byte(livestatus.KeepaliveToken)))
	require.Eventually(t, func() bool { return s.Clients() == 1 }, time.Second, 5*time.Millisecond)

	created := s.Submit(domain.KindAnalysis, "review ADR-3")
	var msg livestatus.TaskStatusMessage
	require.NoError(t, json.Unmarshal([]byte(<-frames), &msg))
	assert.Equal(t, created.TaskID, msg.TaskID)
	assert.Equal(t, "review ADR-3", msg.TaskName)
	assert.Equal(t, domain.StatusQueued, msg.Status)
}

// TestEndToEnd_SessionTracksTask runs a real session against the server:
// event loop, WebSocket push channel and REST polling together.
func TestEndToEnd_SessionTracksTask(t *testing.T) {
	s, srv, c := startServer(t, Options{Steps: 2})

	lp := loop.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = lp.Run(ctx) }()

	sync := domain.NewDefaultConfig().Sync
	sync.PollIntervalMs = 20
	session := livestatus.NewSession(livestatus.Deps{
		Scheduler: lp,
		Dialer:    wsclient.NewDialer(),
		Statuses:  c,
		Queue:     c,
		Reloader:  c,
	}, livestatus.Options{
		PushURL: "ws" + strings.TrimPrefix(srv.URL, "http") + domain.DefaultPushPath,
		Sync:    sync,
	})
	session.Mount()
	defer session.Teardown()

	require.Eventually(t, func() bool {
		return session.Snapshot().Connection == domain.ConnOpen
	}, 3*time.Second, 10*time.Millisecond)

	created, err := c.SubmitTask(ctx, domain.KindGeneration, nil)
	require.NoError(t, err)
	session.Track(domain.KindGeneration, *created)

	require.Eventually(t, func() bool {
		return session.Snapshot().Generating
	}, 3*time.Second, 10*time.Millisecond)

	for range 3 {
		s.Step()
	}

	require.Eventually(t, func() bool {
		snap := session.Snapshot()
		rec, ok := snap.Task(created.TaskID)
		return ok && rec.Status == domain.StatusCompleted && snap.LastReload != nil
	}, 3*time.Second, 10*time.Millisecond)

	snap := session.Snapshot()
	rec, _ := snap.Task(created.TaskID)
	assert.NotNil(t, rec.StartTime)
	assert.False(t, snap.Generating)
	assert.Equal(t, 1, snap.LastReload.Count)
	assert.Equal(t, 1, snap.Queue.WorkersOnline)
}
