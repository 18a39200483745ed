package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file when it changes on disk. Used by the
// long-running watch command so TTLs and connection settings can be adjusted
// without a restart.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	reloads  chan *Config
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		debounce: 250 * time.Millisecond,
		logger:   logger,
		watcher:  fsw,
		reloads:  make(chan *Config, 1),
	}, nil
}

// Reloads returns the channel of successfully reloaded configs.
func (w *Watcher) Reloads() <-chan *Config {
	return w.reloads
}

// Start begins watching until ctx is done. Editors often replace files by
// rename, so the parent directory is watched rather than the file itself.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go func() {
		defer w.watcher.Close()
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(w.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Debounce bursts of write events from editors.
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(w.debounce, w.reload)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watch error", slog.String("error", err.Error()))
			}
		}
	}()
	return nil
}

func (w *Watcher) reload() {
	config, err := LoadFromFile(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", slog.String("path", w.path), slog.String("error", err.Error()))
		return
	}
	if err := config.Validate(); err != nil {
		w.logger.Warn("config reload invalid", slog.String("error", err.Error()))
		return
	}
	w.logger.Info("config reloaded", slog.String("path", w.path))
	select {
	case w.reloads <- config:
	default:
	}
}
