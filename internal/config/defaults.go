package config

import "time"

const (
	DefaultBackendURL      = "http://localhost:8080"
	DefaultPlatformURL     = "https://connect.ifttt.com"
	DefaultEmbedURL        = "https://ifttt.com/access/api/"
	DefaultConnectionID    = "fWj4fxYg"
	DefaultServiceID       = "grocery_express"
	DefaultRedirectPort    = 8085
	DefaultRedirectPath    = "/connect_callback"
	DefaultRequestTimeout  = 10 * time.Second
	DefaultRetryMax        = 2
	DefaultListenAddress   = "localhost:8080"
	DefaultRateLimit       = 5
	DefaultRateLimitBurst  = 10
	DefaultLogLevel        = "info"
	DefaultLogMaxSizeMB    = 10
	DefaultLogMaxBackups   = 3
	DefaultConnectionTitle = "Grocery Express reminders"
)

// GetDefaultConfig returns the default configuration for connectkit.
func GetDefaultConfig() ConnectKitConfig {
	return ConnectKitConfig{
		Backend: BackendConfig{
			URL:      DefaultBackendURL,
			Timeout:  DefaultRequestTimeout,
			RetryMax: DefaultRetryMax,
		},
		Platform: PlatformConfig{
			URL:      DefaultPlatformURL,
			EmbedURL: DefaultEmbedURL,
			Timeout:  DefaultRequestTimeout,
		},
		Connection: ConnectionConfig{
			ID:        DefaultConnectionID,
			ServiceID: DefaultServiceID,
		},
		Redirect: RedirectConfig{
			Port: DefaultRedirectPort,
			Path: DefaultRedirectPath,
		},
		Server: ServerConfig{
			Listen:         DefaultListenAddress,
			RateLimit:      DefaultRateLimit,
			RateLimitBurst: DefaultRateLimitBurst,
			ConnectionName: DefaultConnectionTitle,
		},
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
	}
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *ConnectKitConfig) {
	d := GetDefaultConfig()
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = d.Backend.URL
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = d.Backend.Timeout
	}
	if cfg.Platform.URL == "" {
		cfg.Platform.URL = d.Platform.URL
	}
	if cfg.Platform.EmbedURL == "" {
		cfg.Platform.EmbedURL = d.Platform.EmbedURL
	}
	if cfg.Platform.Timeout == 0 {
		cfg.Platform.Timeout = d.Platform.Timeout
	}
	if cfg.Connection.ID == "" {
		cfg.Connection.ID = d.Connection.ID
	}
	if cfg.Connection.ServiceID == "" {
		cfg.Connection.ServiceID = d.Connection.ServiceID
	}
	if cfg.Redirect.Port == 0 {
		cfg.Redirect.Port = d.Redirect.Port
	}
	if cfg.Redirect.Path == "" {
		cfg.Redirect.Path = d.Redirect.Path
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = d.Server.Listen
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = d.Server.RateLimit
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = d.Server.RateLimitBurst
	}
	if cfg.Server.ConnectionName == "" {
		cfg.Server.ConnectionName = d.Server.ConnectionName
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = d.Logging.MaxSizeMB
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = d.Logging.MaxBackups
	}
}
