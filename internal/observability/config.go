package observability

import (
	"strings"

	"github.com/smallbiznis/panelquote/internal/config"
)

// Config is the slice of application settings the telemetry providers need.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	LogLevel    string

	OtelEnabled   bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

func LoadConfig(cfg config.Config) Config {
	name := strings.TrimSpace(cfg.AppName)
	if name == "" {
		name = "panelquote"
	}
	ratio := cfg.OtelSamplingRatio
	if ratio < 0 || ratio > 1 {
		ratio = 0.1
	}
	return Config{
		ServiceName:   name,
		Environment:   strings.ToLower(strings.TrimSpace(cfg.Environment)),
		Version:       strings.TrimSpace(cfg.AppVersion),
		LogLevel:      cfg.LogLevel,
		OtelEnabled:   cfg.OtelEnabled,
		Endpoint:      cfg.OTLPEndpoint,
		Protocol:      cfg.OTLPProtocol,
		SamplingRatio: ratio,
	}
}

// Debug enables verbose request logging outside production-like environments.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch c.Environment {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
