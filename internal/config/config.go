package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	LogFormat   string
	HTTPAddr    string
	NodeID      int64

	OTLPEndpoint      string
	OTLPProtocol      string
	OtelEnabled       bool
	OtelSamplingRatio float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// SnapshotFile seeds reference data when the catalog tables are empty.
	SnapshotFile       string
	GovernanceFilePath string

	Quote      QuoteConfig
	Governance GovernanceConfig
	RateLimit  RateLimitConfig
}

type QuoteConfig struct {
	SanityCeilingM float64
	RecordHistory  bool
}

// RateLimitConfig throttles quotation compute per client. It needs RedisAddr and is
// disabled when QuoteRate is zero.
type RateLimitConfig struct {
	QuoteRate  float64
	QuoteBurst int
}

type GovernanceConfig struct {
	WriteCredential string
	ImpactWindow    int
	ImpactTTL       time.Duration
	CommitTimeout   time.Duration
	LockTTL         time.Duration
	AuditMaxRetries uint

	// ExpirySweepInterval paces the optional job that rejects lapsed validations; zero, the
	// default, leaves expiry to the commit path.
	ExpirySweepInterval time.Duration
	ExpirySweepBatch    int
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewGovernanceConfigHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "panelquote"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		LogLevel:     strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:    strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", ""))),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		NodeID:       int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		OTLPEndpoint: strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol: strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		OtelEnabled:  getenvBool("OTEL_ENABLED", false),

		OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),

		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "panelquote"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getenvInt("REDIS_DB", 0),

		SnapshotFile:       strings.TrimSpace(getenv("SNAPSHOT_FILE", "")),
		GovernanceFilePath: strings.TrimSpace(getenv("GOVERNANCE_CONFIG_PATH", "")),

		Quote: QuoteConfig{
			SanityCeilingM: getenvFloat("SANITY_CEILING_M", 100),
			RecordHistory:  getenvBool("QUOTE_RECORD_HISTORY", true),
		},
		Governance: GovernanceConfig{
			WriteCredential: strings.TrimSpace(getenv("WRITE_CREDENTIAL", "")),
			ImpactWindow:    getenvInt("IMPACT_WINDOW", 50),
			ImpactTTL:       getenvDuration("IMPACT_TTL", 15*time.Minute),
			CommitTimeout:   getenvDuration("COMMIT_TIMEOUT", 5*time.Second),
			LockTTL:         getenvDuration("FIELD_LOCK_TTL", 30*time.Second),
			AuditMaxRetries: uint(getenvInt("AUDIT_MAX_RETRIES", 4)),

			ExpirySweepInterval: getenvDuration("EXPIRY_SWEEP_INTERVAL", 0),
			ExpirySweepBatch:    getenvInt("EXPIRY_SWEEP_BATCH", 50),
		},
		RateLimit: RateLimitConfig{
			QuoteRate:  getenvFloat("QUOTE_RATE_LIMIT_RPS", 0),
			QuoteBurst: getenvInt("QUOTE_RATE_LIMIT_BURST", 20),
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
