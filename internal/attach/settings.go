package attach

import (
	"timewarp/internal/config"
	"timewarp/internal/control"
	"timewarp/internal/logging"
)

// Settings converts the parts of cfg the control loop consumes.
func Settings(cfg *config.Config) control.Settings {
	s := control.Settings{
		Bindings:   make([]control.Binding, 0, len(cfg.Bindings)),
		ReloadKeys: config.Keys(cfg.ReloadKeys),
	}
	for _, b := range cfg.Bindings {
		mode := control.Hold
		if b.Toggle {
			mode = control.Toggle
		}
		s.Bindings = append(s.Bindings, control.Binding{
			Keys:  config.Keys(b.Keys),
			Speed: b.Speed,
			Mode:  mode,
		})
	}
	return s
}

// LoggingConfig converts the logging section of cfg.
func LoggingConfig(cfg *config.Config) (*logging.Config, error) {
	lc := logging.DefaultConfig()

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	lc.Level = level
	lc.Format = format
	if cfg.Logging.Output != "" {
		lc.Output = cfg.Logging.Output
	}
	lc.FilePath = cfg.LogFilePath()
	return lc, nil
}
