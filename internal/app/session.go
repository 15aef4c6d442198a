package app

import (
	"context"
	"sync"

	"github.com/runoshun/adr-sync/internal/domain"
	"github.com/runoshun/adr-sync/internal/infra/loop"
	"github.com/runoshun/adr-sync/internal/livestatus"
	"github.com/runoshun/adr-sync/internal/usecase"
)

var _ usecase.LiveSession = (*LiveSession)(nil)

// LiveSession is a livestatus.Session running on its own event loop.
// Teardown stops the loop after the session has shut down.
type LiveSession struct {
	*livestatus.Session
	loop     *loop.Loop
	finished chan struct{}
	once     sync.Once
}

// NewLiveSession creates a session from the loaded configuration and starts
// its loop. Call Mount to connect.
func (c *Container) NewLiveSession() (*LiveSession, error) {
	pushURL, err := c.AppConfig.Server.ResolvePushURL()
	if err != nil {
		return nil, err
	}

	lp := loop.New()
	session := livestatus.NewSession(livestatus.Deps{
		Scheduler: lp,
		Dialer:    c.Dialer,
		Statuses:  c.Backend,
		Queue:     c.Backend,
		Reloader:  c.Backend,
		Logger:    c.EventLog,
	}, livestatus.Options{
		PushURL: pushURL,
		Sync:    c.AppConfig.Sync,
	})

	ls := &LiveSession{
		Session:  session,
		loop:     lp,
		finished: make(chan struct{}),
	}
	go func() {
		defer close(ls.finished)
		_ = lp.Run(context.Background())
	}()
	return ls, nil
}

// Teardown tears the session down and waits for the loop to exit.
func (s *LiveSession) Teardown() {
	s.once.Do(func() {
		s.Session.Teardown()
		s.loop.Post(s.loop.Stop)
		<-s.finished
		s.loop.Wait()
	})
}

// ApplyConfig pushes the settings that may change while running.
func (s *LiveSession) ApplyConfig(cfg *domain.Config) {
	s.SetDismissDelay(cfg.Sync.DismissDelay())
}
