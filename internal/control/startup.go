package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Swapper is a Speeder that can change speed conditionally.
type Swapper interface {
	Speeder
	CompareAndSetSpeed(old, speed float64) (bool, error)
}

// Startup is a transient speed applied once at attach.
type Startup struct {
	Speed    float64
	Duration time.Duration
}

// RunStartup applies s.Speed, waits s.Duration and then returns to 1.0,
// unless something else changed the speed in the meantime. Cancelling ctx
// ends the wait and leaves the speed as it is.
func RunStartup(ctx context.Context, clock clockwork.Clock, sw Swapper, s Startup, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	if err := sw.SetSpeed(s.Speed); err != nil {
		return err
	}
	logger.Info("startup speed applied", "speed", s.Speed, "duration", s.Duration)

	select {
	case <-ctx.Done():
		return nil
	case <-clock.After(s.Duration):
	}

	reverted, err := sw.CompareAndSetSpeed(s.Speed, 1.0)
	if err != nil {
		return err
	}
	if reverted {
		logger.Info("startup sequence ended, reset speed to 1.0")
	} else {
		logger.Debug("startup sequence ended, speed changed meanwhile", "speed", sw.Speed())
	}
	return nil
}
