// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	ServiceName string
	Environment string
	Version     string
	Level       string
	// Format is "json" or "console"; empty picks console for local environments.
	Format string
}

// New builds the logger and installs it as the zap global, which request-scoped
// helpers fall back to.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = encoding(opts.Format, opts.Environment)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.Encoding == "console" {
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Sampling = nil
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.InitialFields = map[string]any{
		"service": serviceName(opts.ServiceName),
		"env":     strings.TrimSpace(opts.Environment),
		"version": strings.TrimSpace(opts.Version),
	}

	log, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

func serviceName(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "panelquote"
}

func encoding(format, env string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return "console"
	case "json":
		return "json"
	}
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "local", "dev", "development":
		return "console"
	}
	return "json"
}
