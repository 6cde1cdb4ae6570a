// Package logging provides structured logging for Customer Core.
//
// It wraps the standard library slog package with service-wide defaults:
// a configurable level/format/output, and service name and version attached
// to every record.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("server started", "port", cfg.API.Port)
package logging
