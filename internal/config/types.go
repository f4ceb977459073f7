package config

import "time"

// ConnectKitConfig is the top-level configuration structure for connectkit.
type ConnectKitConfig struct {
	Backend    BackendConfig    `yaml:"backend"`
	Platform   PlatformConfig   `yaml:"platform"`
	Connection ConnectionConfig `yaml:"connection"`
	Redirect   RedirectConfig   `yaml:"redirect"`
	Lifecycle  LifecycleConfig  `yaml:"lifecycle"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// BackendConfig points at the app's own backend that issues app tokens and
// exchanges them for platform user tokens.
type BackendConfig struct {
	URL      string        `yaml:"url"`                // Base URL of the app backend
	Timeout  time.Duration `yaml:"timeout,omitempty"`  // Per-request timeout (default: 10s)
	RetryMax int           `yaml:"retryMax,omitempty"` // Retries on transport errors and 5xx (default: 2)
}

// PlatformConfig points at the automation platform API.
type PlatformConfig struct {
	URL        string        `yaml:"url"`                  // Base URL of the platform API
	EmbedURL   string        `yaml:"embedURL,omitempty"`   // Hosted authorization page
	InviteCode string        `yaml:"inviteCode,omitempty"` // Optional invite code for unpublished services
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// ConnectionConfig names the Connection this app manages.
type ConnectionConfig struct {
	ID        string `yaml:"id"`
	ServiceID string `yaml:"serviceID"`
}

// RedirectConfig configures the local redirect receiver.
type RedirectConfig struct {
	Port int    `yaml:"port,omitempty"` // Loopback port (default: 8085)
	Path string `yaml:"path,omitempty"` // Callback path (default: /connect_callback)
}

// LifecycleConfig tunes the authorization state machine.
type LifecycleConfig struct {
	// KeepSuperseded leaves superseded same-kind requests running instead of
	// cancelling them.
	KeepSuperseded  bool          `yaml:"keepSuperseded,omitempty"`
	RefreshInterval time.Duration `yaml:"refreshInterval,omitempty"` // 0 disables periodic refresh
}

// ServerConfig configures the demo backend started by "connectkit serve".
type ServerConfig struct {
	Listen         string  `yaml:"listen,omitempty"`         // Listen address (default: localhost:8080)
	RateLimit      float64 `yaml:"rateLimit,omitempty"`      // Requests per second per user (default: 5)
	RateLimitBurst int     `yaml:"rateLimitBurst,omitempty"` // Burst size (default: 10)
	ConnectionName string  `yaml:"connectionName,omitempty"`
}

// StorageConfig configures local persisted state.
type StorageConfig struct {
	Dir string `yaml:"dir,omitempty"` // Directory for preferences (default: config directory)
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`
	File       string `yaml:"file,omitempty"` // Optional rotated log file
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty"`
	MaxBackups int    `yaml:"maxBackups,omitempty"`
}
