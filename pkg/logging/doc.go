// Package logging provides subsystem-tagged structured logging for connectkit.
//
// It is a thin layer over log/slog with a text handler. Every entry carries a
// "subsystem" attribute so output from the exchange client, the lifecycle
// machine and the demo backend can be told apart:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Exchange", "Logged in as %s", userID)
//	logging.Debug("Lifecycle", "state %s -> %s", from, to)
//	logging.Error("Platform", err, "Failed to fetch connection %s", id)
//
// Components that accept an injectable *slog.Logger get one through Logger:
//
//	client := exchange.NewClient(exchange.Options{Logger: logging.Logger("Exchange")})
//
// When Init is given a FileOptions with a path, output is also written to a
// size-rotated log file managed by lumberjack. Call Close on shutdown.
//
// Token values must never be passed to these functions. Use
// connect.RedactedToken, which formats as "[REDACTED]".
package logging
