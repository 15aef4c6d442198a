package cli

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runoshun/adr-sync/internal/app"
	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/infra/devserver"
	"github.com/runoshun/adr-sync/internal/infra/restapi"
	"github.com/runoshun/adr-sync/internal/infra/wsclient"
	"github.com/runoshun/adr-sync/internal/testutil"
)

// devFixture is a container wired to an in-process devserver.
type devFixture struct {
	container *app.Container
	server    *devserver.Server
	backend   *restapi.Client
	executor  *testutil.MockCommandExecutor
}

func newDevFixture(t *testing.T, opts devserver.Options) *devFixture {
	t.Helper()
	if opts.StepInterval == 0 {
		opts.StepInterval = 20 * time.Millisecond
	}
	s := devserver.New(opts)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)

	backend, err := restapi.New(srv.URL, 5*time.Second)
	require.NoError(t, err)

	cfg := domain.NewDefaultConfig()
	cfg.Server.BaseURL = srv.URL
	cfg.Server.PushURL = "ws" + strings.TrimPrefix(srv.URL, "http") + domain.DefaultPushPath
	cfg.Sync.PollIntervalMs = 20

	c := app.NewWithDeps(app.Config{WorkDir: t.TempDir()}, cfg, backend, wsclient.NewDialer(),
		domain.RealClock{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	executor := testutil.NewMockCommandExecutor()
	c.Executor = executor

	return &devFixture{container: c, server: s, backend: backend, executor: executor}
}
