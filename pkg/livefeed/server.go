package livefeed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

const shutdownTimeout = 5 * time.Second

// Serve runs the hub's HTTP API on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, hub *Hub, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting live feed API", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
