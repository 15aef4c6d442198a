package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/runoshun/adr-sync/internal/domain"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 100 * time.Millisecond

// Watcher reloads the configuration whenever the project config file changes.
type Watcher struct {
	loader   domain.ConfigLoader
	logger   domain.Logger
	onChange func(*domain.Config)
	path     string
}

// NewWatcher creates a Watcher for the loader's project config file.
// onChange receives every successfully reloaded configuration.
func NewWatcher(loader *Loader, logger domain.Logger, onChange func(*domain.Config)) *Watcher {
	if logger == nil {
		logger = domain.NopLogger{}
	}
	return &Watcher{
		loader:   loader,
		logger:   logger,
		onChange: onChange,
		path:     loader.ProjectPath(),
	}
}

// Run watches until ctx is done. The directory is watched rather than the
// file so that editors replacing the file by rename are noticed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce = time.After(reloadDebounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("", "config", "fsnotify: "+err.Error())
		case <-debounce:
			debounce = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Warn("", "config", "reload failed, keeping previous config: "+err.Error())
		return
	}
	w.logger.Info("", "config", "reloaded "+w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
