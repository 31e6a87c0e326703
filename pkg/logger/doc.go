// Package logger builds configured slog.Logger instances for the service.
//
// JSON output is the default so the gateway's decision logs land in log
// aggregation as structured records; text format is for local development.
//
//	log := logger.New(
//	    logger.WithLevel(slog.LevelDebug),
//	    logger.WithFormat(logger.FormatText),
//	    logger.WithAttr(slog.String("component", "gated")),
//	)
package logger
