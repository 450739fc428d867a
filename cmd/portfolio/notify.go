package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/princekumarofficial/portfolio-studio/internal/websocket"
)

// serveNotifications streams shell notifications on ws://addr/events until
// stop is called.
func serveNotifications(ctx context.Context, addr string, logger *slog.Logger) (*websocket.Hub, func()) {
	hubCtx, cancel := context.WithCancel(ctx)
	hub := websocket.NewHub(logger)
	go hub.Run(hubCtx)

	router := http.NewServeMux()
	router.Handle("GET /events", hub)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("notification server failed", "addr", addr, "error", err.Error())
		}
	}()
	logger.Info("notification server started", "addr", addr)

	stop := func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down notification server", "error", err.Error())
		}
	}
	return hub, stop
}
