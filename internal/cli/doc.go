// Package cli holds the terminal presentation helpers of connectkit.
//
// It prints lifecycle snapshots as plain tables, styled go-pretty tables,
// JSON or YAML, narrates lifecycle events through Printer, shows spinners
// while waiting on the network and turns exchange, platform and lifecycle
// errors into actionable messages.
package cli
