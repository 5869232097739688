//go:build linux

package notify

import "log/slog"

func newPlatformNotifier(logger *slog.Logger) Notifier {
	n, err := NewDBusNotifier(logger)
	if err != nil {
		logger.Debug("desktop notifications unavailable, logging errors instead", "error", err)
		return LogNotifier{Logger: logger}
	}
	return n
}
