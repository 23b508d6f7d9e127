package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "mysql")
	t.Setenv("SNOWFLAKE_NODE_ID", "12")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "HTTP")
	t.Setenv("METRICS_PUSH_EXPORTER", " Prometheus_Pushgateway ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.DBType)
	assert.Equal(t, int64(12), cfg.NodeID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
	assert.Equal(t, "http", cfg.TracesProtocol())
	assert.Equal(t, "prometheus_pushgateway", cfg.MetricsPushExporter)
	assert.Equal(t, 60, cfg.MetricsPushInterval)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "oracle")
	t.Setenv("SNOWFLAKE_NODE_ID", "4096")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_TYPE")
	assert.Contains(t, err.Error(), "SNOWFLAKE_NODE_ID")
}

func TestValidate(t *testing.T) {
	valid := Config{DBType: "postgres", NodeID: 1, OTLPProtocol: "grpc", OtelSamplingRatio: 0.1}
	assert.NoError(t, valid.Validate())

	cases := map[string]func(*Config){
		"sampling ratio":  func(c *Config) { c.OtelSamplingRatio = 2 },
		"otlp protocol":   func(c *Config) { c.OTLPProtocol = "udp" },
		"traces protocol": func(c *Config) { c.OTLPTracesProtocol = "zipkin" },
		"push interval":   func(c *Config) { c.MetricsPushExporter = "prometheus_pushgateway" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestTracesProtocolFallsBack(t *testing.T) {
	assert.Equal(t, "grpc", Config{OTLPProtocol: "grpc"}.TracesProtocol())
}
