// Package logging provides structured logging configuration for the stub
// server.
//
// This package wraps log/slog so that every component logs the same way. It
// supports configurable log levels and output formats.
//
// # Usage
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatText,
//	})
//
//	logger.Info("server started", "port", 8080)
//	logger.Error("failed to load pact", "source", src, "error", err)
//
// # Log Levels
//
//   - Trace: every match attempt, including mismatches
//   - Debug: detailed information for debugging
//   - Info: general operational information
//   - Warn: ambiguous matches and insecure settings
//   - Error: load failures and internal errors
//   - None: discard everything
//
// # Output Formats
//
//   - Text: human-readable format for development
//   - JSON: structured format for log aggregation systems
//
// # Integration
//
// Components should accept a *slog.Logger in their constructor or via an
// option. If no logger is provided, use logging.Nop().
package logging
