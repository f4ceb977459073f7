// Package config provides configuration management for connectkit.
//
// Configuration is loaded from config.yaml in a single directory. The default
// directory is ~/.config/connectkit, and every command accepts --config-path
// to point elsewhere. A missing file yields the defaults from GetDefaultConfig.
// A partial file is merged over the defaults.
//
// Example config.yaml:
//
//	backend:
//	  url: http://localhost:8080
//	  timeout: 10s
//	  retryMax: 2
//	platform:
//	  url: https://connect.ifttt.com
//	  inviteCode: abcd
//	connection:
//	  id: fWj4fxYg
//	  serviceID: grocery_express
//	redirect:
//	  port: 8085
//	lifecycle:
//	  refreshInterval: 1m
//	logging:
//	  level: debug
//	  file: /tmp/connectkit.log
//
// Invalid values are reported as ConfigurationError, whose DetailedError
// method renders the offending field and suggestions.
package config
