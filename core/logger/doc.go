// Package logger provides structured logging utilities built on Go's
// standard slog package: a small factory for environment-appropriate
// loggers and a set of pre-built attribute helpers for the sending and
// webhook paths.
//
// Create a logger and use the helpers:
//
//	log := logger.New(
//		logger.WithJSONFormatter(),
//		logger.WithLevel(slog.LevelInfo),
//		logger.WithAttr(slog.String("service", "mailer")),
//	)
//
//	log.Info("send dispatched",
//		logger.Provider("sendgrid"),
//		logger.MessageID(res.Recipients[0].MessageID),
//		logger.Count("recipients", len(msg.Recipients)),
//		logger.Duration(time.Since(start)),
//	)
//
// Attribute helpers use the empty Attr pattern for nil safety: passing a
// nil error or empty identifier yields an empty Attr that slog drops,
// so call sites need no explicit nil checks.
package logger
