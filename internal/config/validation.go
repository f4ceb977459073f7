package config

import (
	"net/url"
	"strconv"

	"connectkit/pkg/logging"
)

// Validate checks that cfg is usable.
func Validate(cfg ConnectKitConfig) error {
	for field, raw := range map[string]string{
		"backend.url":       cfg.Backend.URL,
		"platform.url":      cfg.Platform.URL,
		"platform.embedURL": cfg.Platform.EmbedURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ConfigurationError{
				FileName:    configFileName,
				Field:       field,
				ErrorType:   "validation",
				Message:     "must be an absolute URL",
				Details:     raw,
				Suggestions: []string{"Use a value like http://localhost:8080"},
			}
		}
	}

	if cfg.Connection.ID == "" {
		return ConfigurationError{
			FileName:  configFileName,
			Field:     "connection.id",
			ErrorType: "validation",
			Message:   "is required",
		}
	}

	if cfg.Redirect.Port < 0 || cfg.Redirect.Port > 65535 {
		return ConfigurationError{
			FileName:  configFileName,
			Field:     "redirect.port",
			ErrorType: "validation",
			Message:   "must be between 0 and 65535",
		}
	}

	if cfg.Backend.RetryMax < 0 {
		return ConfigurationError{
			FileName:  configFileName,
			Field:     "backend.retryMax",
			ErrorType: "validation",
			Message:   "must not be negative",
		}
	}

	if _, err := logging.ParseLogLevel(cfg.Logging.Level); err != nil {
		return ConfigurationError{
			FileName:    configFileName,
			Field:       "logging.level",
			ErrorType:   "validation",
			Message:     err.Error(),
			Suggestions: []string{"Use one of debug, info, warn, error"},
		}
	}
	return nil
}

// RedirectURI returns the loopback URI the hosted flow redirects to.
func (c ConnectKitConfig) RedirectURI() string {
	u := url.URL{
		Scheme: "http",
		Host:   "127.0.0.1:" + strconv.Itoa(c.Redirect.Port),
		Path:   c.Redirect.Path,
	}
	return u.String()
}
