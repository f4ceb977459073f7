// Package connect holds the host-independent types shared by the connectkit
// client packages and the CLI: Connection metadata, the per-user connection
// status, the redirect result parsed from a deep link, and the embed URI used
// to launch the hosted authorization flow.
//
// Nothing in this package performs I/O. Redirect parsing in particular is a
// pure function over a URI's query parameters so it can be driven from a local
// HTTP listener, a command-line argument or a test.
package connect
