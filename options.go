package duplexrpc

import "log/slog"

// Option configures an Engine created by New.
type Option func(*engineConfig)

type engineConfig struct {
	logger *slog.Logger
}

func applyOptions(opts []Option) *engineConfig {
	cfg := &engineConfig{
		logger: NopLogger(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// WithLogger sets the logger for engine diagnostics. By default logging is
// disabled.
//
//	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
//	engine := duplexrpc.New(duplexrpc.WithLogger(logger))
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *engineConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
