package httpserver_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatekit/pkg/httpserver"
)

func TestServerRunAndShutdown(t *testing.T) {
	t.Parallel()

	t.Run("stops when context is cancelled", func(t *testing.T) {
		t.Parallel()

		srv := httpserver.New(
			httpserver.WithAddr("127.0.0.1:0"),
			httpserver.WithShutdownTimeout(time.Second),
		)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() {
			done <- srv.Run(ctx, http.NewServeMux())
		}()

		time.Sleep(50 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("server did not stop after context cancellation")
		}
	})

	t.Run("second run rejected", func(t *testing.T) {
		t.Parallel()

		srv := httpserver.New(httpserver.WithAddr("127.0.0.1:0"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() { _ = srv.Run(ctx, nil) }()
		time.Sleep(50 * time.Millisecond)

		err := srv.Run(ctx, nil)
		require.ErrorIs(t, err, httpserver.ErrStart)
	})

	t.Run("shutdown before run is a no-op", func(t *testing.T) {
		t.Parallel()

		srv := httpserver.New()
		assert.NoError(t, srv.Shutdown(context.Background()))
	})
}
