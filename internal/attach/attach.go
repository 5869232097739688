// Package attach wires timewarp into a host process.
//
// Attach runs once per process: it loads the config, installs the time
// hooks, applies the startup speed and starts the control loop. Detach undoes
// all of it. The returned Session owns the virtualizer; nothing else holds a
// reference to it.
package attach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/xid"

	"timewarp/internal/config"
	"timewarp/internal/control"
	"timewarp/internal/hook"
	"timewarp/internal/keyboard"
	"timewarp/internal/logging"
	"timewarp/internal/notify"
	"timewarp/internal/platform"
	"timewarp/internal/timesource"
)

// Errors returned by Attach.
var (
	ErrAlreadyAttached = errors.New("attach: already attached")
	ErrConfig          = errors.New("attach: invalid config")
	ErrNoEngine        = errors.New("attach: no hook engine")
)

// Dialog titles.
const (
	titleInvalidConfig = "Failed to validate timewarp config"
)

// Options configures Attach. Only Engine is required.
type Options struct {
	// ConfigPath defaults to timewarp.toml next to the executable.
	ConfigPath string

	// Engine installs the time hooks.
	Engine hook.Engine

	Sampler  keyboard.Sampler
	Clock    clockwork.Clock
	Notifier notify.Notifier
	Console  *platform.Console

	// FindWindow locates the host's main window for the focus gate.
	FindWindow platform.WindowFinder

	// Logger replaces the logger built from the config.
	Logger *logging.Logger

	// Guard defaults to a process-wide guard.
	Guard *Guard
}

// Session is an attached timewarp instance.
type Session struct {
	id     string
	path   string
	cfg    *config.Config
	virt   *timesource.Virtualizer
	guard  *Guard
	logger *logging.Logger
	log    *slog.Logger

	ownsLogger bool
	console    *platform.Console
	notifier   notify.Notifier
	watcher    *config.Watcher

	cancel context.CancelFunc
	wg     sync.WaitGroup

	detachOnce sync.Once
	detachErr  error
}

// Attach loads the config and hooks the host's time sources. It returns
// ErrAlreadyAttached when another Session is live on the same guard. ctx
// bounds the attach itself; the Session runs until Detach.
func Attach(ctx context.Context, opts Options) (_ *Session, err error) {
	if opts.Engine == nil {
		return nil, ErrNoEngine
	}
	guard := opts.Guard
	if guard == nil {
		guard = &processGuard
	}
	if !guard.TryAcquire() {
		return nil, ErrAlreadyAttached
	}
	defer func() {
		if err != nil {
			guard.Release()
		}
	}()

	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	bootLog := slog.Default()
	if opts.Logger != nil {
		bootLog = opts.Logger.Logger
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.New(bootLog)
	}

	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		msg := fmt.Sprintf("Error: %v\nTime will run at normal speed.", err)
		if nerr := notifier.ShowError(titleInvalidConfig, msg); nerr != nil {
			bootLog.Warn("failed to show config error", "error", nerr)
		}
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	s := &Session{
		id:       xid.New().String(),
		path:     path,
		cfg:      cfg,
		guard:    guard,
		logger:   opts.Logger,
		console:  opts.Console,
		notifier: notifier,
	}
	if s.logger == nil {
		s.logger = newLogger(cfg, bootLog)
		s.ownsLogger = true
	}
	s.log = s.component("attach")
	if s.console == nil {
		s.console = platform.NewConsole()
	}
	defer func() {
		if err == nil {
			return
		}
		s.setConsole(false)
		if s.ownsLogger {
			s.logger.Close()
		}
	}()

	if created {
		s.log.Info("wrote default config", "path", path)
	}
	s.setConsole(cfg.Console)

	if delay := cfg.HookDelay.Std(); delay > 0 {
		s.log.Debug("waiting before hooking", "delay", delay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-clock.After(delay):
		}
	}

	s.virt, err = timesource.New(opts.Engine, s.component("timesource"))
	if err != nil {
		s.log.Error("failed to hook time sources", "error", err)
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if cfg.Startup != nil {
		startup := control.Startup{Speed: cfg.Startup.Speed, Duration: cfg.Startup.Duration.Std()}
		s.goRun(func() {
			err := control.RunStartup(runCtx, clock, s.virt, startup, s.component("startup"))
			if err != nil {
				s.log.Error("startup speed failed", "error", err)
			}
		})
	}

	loopOpts := control.Options{
		Interval: cfg.TickInterval.Std(),
		Clock:    clock,
		Logger:   s.component("control"),
		Reload:   s.reload,
		Notifier: notifier,
	}
	if cfg.WatchFile {
		s.startWatcher(runCtx, &loopOpts)
	}

	sampler := opts.Sampler
	if sampler == nil {
		sampler = keyboard.NewSampler()
	}
	if ok, reason := sampler.Available(); !ok {
		s.log.Warn("keyboard sampling unavailable, bindings will never fire", "reason", reason)
	}
	tracker := keyboard.NewTracker(sampler)
	settings := Settings(cfg)

	s.goRun(func() {
		if cfg.FocusOnly {
			focus, ok := s.waitFocus(runCtx, clock, opts.FindWindow)
			if !ok {
				return
			}
			loopOpts.Focus = focus
		}
		loop := control.NewLoop(s.virt, tracker, settings, loopOpts)
		if err := loop.Run(runCtx); err != nil {
			s.log.Error("control loop failed", "error", err)
		}
	})

	s.log.Info("attached",
		"config", path,
		"bindings", len(cfg.Bindings),
		"focus_only", cfg.FocusOnly,
		"watch_file", cfg.WatchFile)
	return s, nil
}

func newLogger(cfg *config.Config, fallback *slog.Logger) *logging.Logger {
	lc, err := LoggingConfig(cfg)
	if err == nil {
		var l *logging.Logger
		if l, err = logging.New(lc); err == nil {
			return l
		}
	}
	fallback.Warn("failed to set up logging from config, using stderr", "error", err)
	return logging.Default()
}

// component returns a logger tagged with the component and session.
func (s *Session) component(name string) *slog.Logger {
	return s.logger.WithComponent(name).With("session", s.id)
}

func (s *Session) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// waitFocus blocks until the host's main window exists. ok is false when ctx
// ended the wait.
func (s *Session) waitFocus(ctx context.Context, clock clockwork.Clock, find platform.WindowFinder) (control.Focus, bool) {
	s.log.Debug("waiting for main window")
	w, err := platform.WaitMainWindow(ctx, clock, platform.DefaultWindowPoll, find)
	switch {
	case err == nil:
	case errors.Is(err, platform.ErrUnsupported):
		s.log.Warn("focus detection unsupported, bindings apply regardless of focus")
		return nil, true
	default:
		return nil, false
	}

	s.log.Info("found main window", "window", uintptr(w))
	if owned, ok := s.notifier.(notify.Owned); ok {
		owned.SetOwner(uintptr(w))
	}
	return w, true
}

// reload backs the reload chord.
func (s *Session) reload() (control.Settings, error) {
	cfg, err := config.Load(s.path)
	if err != nil {
		return control.Settings{}, err
	}
	s.setConsole(cfg.Console)
	return Settings(cfg), nil
}

func (s *Session) startWatcher(ctx context.Context, opts *control.Options) {
	w, err := config.NewWatcher(s.path, s.component("watcher"))
	if err != nil {
		s.log.Warn("config watch disabled", "error", err)
		return
	}
	s.watcher = w

	updates := make(chan control.Settings)
	opts.Updates = updates
	opts.UpdateErrors = w.Errors()

	s.goRun(func() {
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-w.Changes():
				if !ok {
					return
				}
				s.setConsole(cfg.Console)
				select {
				case updates <- Settings(cfg):
				case <-ctx.Done():
					return
				}
			}
		}
	})
}

func (s *Session) setConsole(on bool) {
	if err := s.console.Set(on); err != nil {
		s.log.Warn("console toggle failed", "console", on, "error", err)
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Config returns the config loaded at attach.
func (s *Session) Config() *config.Config {
	return s.cfg
}

// Speed returns the current time multiplier.
func (s *Session) Speed() float64 {
	return s.virt.Speed()
}

// Virtualizer returns the session's virtualizer.
func (s *Session) Virtualizer() *timesource.Virtualizer {
	return s.virt
}

// Detach stops the loop, removes the hooks and frees the guard. Calling it
// again returns the first result.
func (s *Session) Detach() error {
	s.detachOnce.Do(func() {
		s.cancel()
		if s.watcher != nil {
			if err := s.watcher.Close(); err != nil {
				s.log.Warn("close config watcher", "error", err)
			}
		}
		s.wg.Wait()

		s.detachErr = s.virt.Teardown()
		s.guard.Release()

		if s.detachErr != nil {
			s.log.Error("detached with errors", "error", s.detachErr)
		} else {
			s.log.Info("detached")
		}
		if s.ownsLogger {
			s.logger.Close()
		} else {
			s.logger.Sync()
		}
	})
	return s.detachErr
}
