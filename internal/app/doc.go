// Package app bootstraps connectkit and runs its commands.
//
// # Bootstrap
//
// NewApplication resolves the configuration directory (default
// ~/.config/connectkit), loads config.yaml through internal/config and
// initializes pkg/logging. Flags win over the logging section of the file;
// quiet mode limits log output to errors. Logs go to stderr so that command
// output on stdout stays machine readable, and optionally to a rotated file.
//
// Start then wires the services:
//
//   - exchange.Client against backend.url, with the configured timeout,
//     retries and superseding policy
//   - platform.Client against platform.url, identified by the anonymous id
//     persisted in the preferences store
//   - lifecycle.Machine driving both, with the stored email as credential
//     source and its metrics registered on a private Prometheus registry
//
// # Commands
//
// Login, Status, SetEnabled, Logout and HandleRedirect are one-shot
// operations: each logs the stored user in and waits for the lifecycle to
// settle before acting. RunConnect is the interactive flow: it opens the
// hosted authorization page with a loopback redirect receiver and waits for
// the redirect, re-logging in when the stored email is edited meanwhile.
// Serve runs the demo backend.
//
// Failures are mapped to the typed errors of internal/cli, which the root
// command turns into exit codes.
package app
