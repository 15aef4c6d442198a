package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/runoshun/adr-sync/internal/app"
	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/infra/devserver"
)

// shutdownTimeout bounds graceful shutdown of the dev server listeners.
const shutdownTimeout = 5 * time.Second

// newDevserverCommand creates the devserver command.
func newDevserverCommand(c *app.Container) *cobra.Command {
	var (
		addr     string
		pushAddr string
		opts     devserver.Options
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local simulated backend",
		Long: `Run a local stand-in for the decision record backend.

It serves the REST API on --addr and the push channel on --push-addr, the
layout of the "lan" deployment mode. With --push-addr "" the push channel is
served on --addr only, like the "load-balanced" mode.

Submitted tasks wait in the queue, then advance one step every
--step-interval until they complete (or fail, with --fail-every).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c != nil {
				opts.Logger = c.EventLog
			}
			ctx, cancel := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serveDev(ctx, cmd, devserver.New(opts), addr, pushAddr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "REST listen address")
	cmd.Flags().StringVar(&pushAddr, "push-addr", fmt.Sprintf("127.0.0.1:%d", domain.DefaultPushPort), "Push channel listen address (empty = serve on --addr)")
	cmd.Flags().DurationVar(&opts.StepInterval, "step-interval", time.Second, "Time between simulation steps")
	cmd.Flags().IntVar(&opts.Steps, "steps", 3, "Progress steps per task")
	cmd.Flags().IntVar(&opts.FailEvery, "fail-every", 0, "Fail every n-th task (0 = never)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "Tasks running at once")

	return cmd
}

// serveDev runs the simulation and its listeners until ctx is done.
func serveDev(ctx context.Context, cmd *cobra.Command, s *devserver.Server, addr, pushAddr string) error {
	servers := []*http.Server{{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}}
	if pushAddr != "" {
		servers = append(servers, &http.Server{Addr: pushAddr, Handler: s.PushHandler(), ReadHeaderTimeout: 10 * time.Second})
	}

	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "REST API:     http://%s\n", listeners[0].Addr())
	if len(listeners) > 1 {
		_, _ = fmt.Fprintf(w, "Push channel: ws://%s%s\n", listeners[1].Addr(), domain.DefaultPushPath)
	} else {
		_, _ = fmt.Fprintf(w, "Push channel: ws://%s%s\n", listeners[0].Addr(), domain.DefaultPushPath)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Run(gctx)
		return nil
	})
	for i, srv := range servers {
		ln := listeners[i]
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
