// Package logger provides the structured logging interface used across instanon.
//
// It wraps zerolog with a small Logger interface so packages can log with
// fields without depending on zerolog directly, and so tests can swap in
// NewNopLogger or NewTestLogger.
//
// Diagnostics meant for the user (profile status, progress) are printed by
// package ui; this logger carries the developer-facing trail and is quiet
// by default (level "error"). Use --verbose or INSTANON_LOG_LEVEL=debug to
// see every request.
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("username", "alice").Info("Resolving profile")
package logger
