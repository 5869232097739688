package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a config file whenever it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	changes chan *Config
	errs    chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewWatcher starts watching path. The directory is watched rather than the
// file so that editors replacing the file are noticed.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		path:     path,
		debounce: DefaultDebounce,
		logger:   logger,
		watcher:  fw,
		changes:  make(chan *Config, 1),
		errs:     make(chan error, 1),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.wg.Add(1)
	go w.watchLoop()

	logger.Debug("watching config file", "path", path)
	return w, nil
}

// Changes delivers successfully reloaded configs.
func (w *Watcher) Changes() <-chan *Config {
	return w.changes
}

// Errors delivers reload and watch failures.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

func (w *Watcher) watchLoop() {
	defer w.wg.Done()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendErr(fmt.Errorf("watch config: %w", err))
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.sendErr(err)
		return
	}

	w.logger.Info("config file changed", "path", w.path)

	// Only the newest config matters.
	select {
	case <-w.changes:
	default:
	}
	select {
	case w.changes <- cfg:
	case <-w.ctx.Done():
	}
}

func (w *Watcher) sendErr(err error) {
	select {
	case w.errs <- err:
	case <-w.ctx.Done():
	default:
		w.logger.Warn("dropped config watch error", "error", err)
	}
}

// Close stops watching. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.closeErr = w.watcher.Close()
		w.wg.Wait()
	})
	return w.closeErr
}
