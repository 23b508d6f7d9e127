package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds process-level configuration read from the environment.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	LogLevel  string
	LogFormat string

	OTLPEndpoint       string
	OTLPProtocol       string
	OTLPTracesProtocol string
	OtelEnabled        bool
	OtelSamplingRatio  float64

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SlackBotToken  string
	SlackChannelID string

	MetricsPushExporter string
	MetricsPushEndpoint string
	MetricsPushToken    string
	MetricsPushInterval int
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewEngineConfigHolder),
)

// Load reads configuration from the environment, after merging a .env file
// when one exists, and rejects settings the process cannot start with.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "contractledger"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		NodeID:      getenvInt64("SNOWFLAKE_NODE_ID", 1),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "json")),

		OTLPEndpoint:       strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
		OTLPProtocol:       strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OTLPTracesProtocol: strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", ""))),
		OtelEnabled:        getenvBool("OTEL_ENABLED", false),
		OtelSamplingRatio:  getenvFloat("OTEL_SAMPLING_RATIO", 0.1),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "contractledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "contractledger.db"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       int(getenvInt64("REDIS_DB", 0)),

		SlackBotToken:  strings.TrimSpace(getenv("SLACK_BOT_TOKEN", "")),
		SlackChannelID: strings.TrimSpace(getenv("SLACK_CHANNEL_ID", "")),

		MetricsPushExporter: strings.ToLower(strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", ""))),
		MetricsPushEndpoint: strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
		MetricsPushToken:    strings.TrimSpace(getenv("METRICS_PUSH_TOKEN", "")),
		MetricsPushInterval: int(getenvInt64("METRICS_PUSH_INTERVAL", 60)),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.DBType {
	case "postgres", "postgresql", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_TYPE %q is not one of postgres, mysql, sqlite", c.DBType))
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		errs = append(errs, fmt.Errorf("SNOWFLAKE_NODE_ID %d is outside 0..1023", c.NodeID))
	}
	for key, protocol := range map[string]string{
		"OTEL_EXPORTER_OTLP_PROTOCOL":        c.OTLPProtocol,
		"OTEL_EXPORTER_OTLP_TRACES_PROTOCOL": c.OTLPTracesProtocol,
	} {
		switch protocol {
		case "", "grpc", "grpc/protobuf", "http", "http/protobuf":
		default:
			errs = append(errs, fmt.Errorf("%s %q is not supported", key, protocol))
		}
	}
	if c.OtelSamplingRatio < 0 || c.OtelSamplingRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLING_RATIO %v is outside 0..1", c.OtelSamplingRatio))
	}
	if c.MetricsPushExporter != "" && c.MetricsPushInterval <= 0 {
		errs = append(errs, errors.New("METRICS_PUSH_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// TracesProtocol prefers the traces specific OTLP protocol over the shared one.
func (c Config) TracesProtocol() string {
	if c.OTLPTracesProtocol != "" {
		return c.OTLPTracesProtocol
	}
	return c.OTLPProtocol
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
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
