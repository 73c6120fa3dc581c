package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSettings() Settings {
	return Settings{
		Database:  DbSettings{Type: "memory"},
		Connector: ConnectorSettings{Type: "mock"},
		Worker:    WorkerSettings{PollInterval: 10 * time.Second, OfflineThreshold: 3},
		Audit:     AuditSettings{MaxEntries: 50},
		API:       APISettings{Addr: ":8080"},
		Observability: Observability{
			ServiceName: "erp-sync",
			TracingURL:  "http://localhost:4318",
		},
	}
}

func TestValidateAcceptsValidSettings(t *testing.T) {
	cfg := validSettings()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"missing database type", func(c *Settings) { c.Database.Type = "" }},
		{"unknown database type", func(c *Settings) { c.Database.Type = "cassandra" }},
		{"unknown connector type", func(c *Settings) { c.Connector.Type = "kafka" }},
		{"missing service name", func(c *Settings) { c.Observability.ServiceName = "" }},
		{"missing tracing url", func(c *Settings) { c.Observability.TracingURL = "" }},
		{"malformed tracing url", func(c *Settings) { c.Observability.TracingURL = "not a url" }},
		{"malformed metrics url", func(c *Settings) { c.Observability.MetricsURL = "not a url" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validSettings()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Settings{}
	cfg.ApplyDefaults()

	assert.Equal(t, 10*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 3, cfg.Worker.OfflineThreshold)
	assert.Equal(t, 50, cfg.Audit.MaxEntries)
	assert.Equal(t, ":8080", cfg.API.Addr)
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Settings{
		Worker: WorkerSettings{PollInterval: time.Second, OfflineThreshold: 5},
		Audit:  AuditSettings{MaxEntries: 10},
		API:    APISettings{Addr: ":9000"},
	}
	cfg.ApplyDefaults()

	assert.Equal(t, time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 5, cfg.Worker.OfflineThreshold)
	assert.Equal(t, 10, cfg.Audit.MaxEntries)
	assert.Equal(t, ":9000", cfg.API.Addr)
}
