package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ConnectKitConfig)
		wantField string
	}{
		{name: "defaults are valid", mutate: func(*ConnectKitConfig) {}},
		{name: "relative platform url", mutate: func(c *ConnectKitConfig) { c.Platform.URL = "/v2" }, wantField: "platform.url"},
		{name: "missing connection id", mutate: func(c *ConnectKitConfig) { c.Connection.ID = "" }, wantField: "connection.id"},
		{name: "port out of range", mutate: func(c *ConnectKitConfig) { c.Redirect.Port = 70000 }, wantField: "redirect.port"},
		{name: "negative retries", mutate: func(c *ConnectKitConfig) { c.Backend.RetryMax = -1 }, wantField: "backend.retryMax"},
		{name: "unknown log level", mutate: func(c *ConnectKitConfig) { c.Logging.Level = "loud" }, wantField: "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(&cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			ce, ok := err.(ConfigurationError)
			if assert.True(t, ok, "expected ConfigurationError, got %T", err) {
				assert.Equal(t, tt.wantField, ce.Field)
			}
		})
	}
}

func TestRedirectURI(t *testing.T) {
	cfg := GetDefaultConfig()
	assert.Equal(t, "http://127.0.0.1:8085/connect_callback", cfg.RedirectURI())
}
