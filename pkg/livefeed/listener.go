package livefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

var ErrMaxRetries = errors.New("max connection retries reached")

const (
	maxRetries     = 10
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second

	handshakeTimeout = 10 * time.Second
	readTimeout      = 30 * time.Second
	pingInterval     = 10 * time.Second
)

// Listener follows a live feed and hands every reading to a callback.
type Listener struct {
	URL    url.URL
	Logger *slog.Logger

	// BaseRetryDelay overrides the first backoff step.
	BaseRetryDelay time.Duration
}

func NewListener(host string, logger *slog.Logger) *Listener {
	return &Listener{
		URL:            url.URL{Scheme: "ws", Host: host, Path: "/ws"},
		Logger:         logger,
		BaseRetryDelay: baseRetryDelay,
	}
}

// Run connects, reconnecting with exponential backoff, until ctx is
// cancelled or maxRetries consecutive attempts fail.
func (l *Listener) Run(ctx context.Context, handleReading func(*types.Reading)) error {
	retryCount := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		if retryCount > 0 {
			retryDelay := backoff(l.BaseRetryDelay, retryCount)
			l.Logger.Info("Retrying connection", "delay", retryDelay, "attempt", retryCount+1, "max", maxRetries)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil
			}
		}

		l.Logger.Info("Connecting", "url", l.URL.String())

		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, _, err := dialer.DialContext(ctx, l.URL.String(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.Logger.Warn("Connection failed", "error", err)
			retryCount++
			if retryCount >= maxRetries {
				return fmt.Errorf("%w (%d)", ErrMaxRetries, maxRetries)
			}
			continue
		}

		l.Logger.Info("Connected, accepting meter readings")
		retryCount = 0

		broken := l.handleConnection(ctx, conn, handleReading)
		conn.Close()
		if !broken {
			return nil
		}
		l.Logger.Warn("Connection lost, will retry")
	}
}

func backoff(base time.Duration, retryCount int) time.Duration {
	if retryCount > 30 {
		return maxRetryDelay
	}
	delay := base << (retryCount - 1)
	if delay > maxRetryDelay || delay <= 0 {
		return maxRetryDelay
	}
	return delay
}

// handleConnection returns true when the connection broke and false on
// a requested shutdown.
func (l *Listener) handleConnection(ctx context.Context, conn *websocket.Conn, handleReading func(*types.Reading)) bool {
	done := make(chan struct{})

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					l.Logger.Warn("WebSocket error", "error", err)
				} else {
					l.Logger.Info("Connection closed", "error", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				l.Logger.Debug("Received unexpected message type", "type", messageType)
				continue
			}
			reading := types.ReadingFromJsonBytes(message)
			if reading == nil {
				l.Logger.Warn("Failed to parse meter reading", "message", string(message))
				continue
			}
			handleReading(reading)
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return true
		case <-ticker.C:
			deadline := time.Now().Add(writeTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				l.Logger.Warn("Failed to send ping", "error", err)
			}
		case <-ctx.Done():
			deadline := time.Now().Add(writeTimeout)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
				l.Logger.Debug("Error sending close message", "error", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}

// StartListener follows the live feed served at host until ctx is cancelled.
func StartListener(ctx context.Context, host string, logger *slog.Logger, handleReading func(*types.Reading)) error {
	return NewListener(host, logger).Run(ctx, handleReading)
}
