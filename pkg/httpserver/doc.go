// Package httpserver wraps net/http with graceful shutdown for the gateway.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal
// arrives, then drains in-flight requests within the shutdown timeout.
// Construction is via functional options or an env-tagged Config:
//
//	srv := httpserver.New(
//	    httpserver.WithAddr(":8080"),
//	    httpserver.WithLogger(log),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//	    log.Error("server stopped", slog.Any("error", err))
//	}
package httpserver
