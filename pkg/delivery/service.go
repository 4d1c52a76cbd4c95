// Package delivery periodically drains the reading queue and posts the batch
// to the remote collector.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/NotCoffee418/p1_forwarder/pkg/readingqueue"
)

var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

type Worker struct {
	cfg    Config
	queue  *readingqueue.Queue
	auth   Authorizer
	client *http.Client
	logger *slog.Logger
}

func NewWorker(cfg Config, queue *readingqueue.Queue, auth Authorizer, logger *slog.Logger) *Worker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Worker{
		cfg:    cfg,
		queue:  queue,
		auth:   auth,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Run delivers a batch every interval until ctx is cancelled.
// Delivery errors never stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		_ = w.RunOnce(ctx)

		t := time.NewTimer(w.cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// RunOnce performs a single drain and send cycle. The returned error has
// already been logged.
func (w *Worker) RunOnce(ctx context.Context) error {
	w.logger.Debug("Delivery cycle", "queued", w.queue.Len())

	readings := w.queue.DrainAll()
	if len(readings) == 0 {
		return nil
	}

	body, err := json.Marshal(payload{Data: readings})
	if err != nil {
		w.logger.Error("Error encoding readings", "error", err)
		return err
	}
	w.logger.Debug("Sending readings", "count", len(readings), "payload", string(body))

	w.auth.EnsureValid(ctx)

	if err := w.send(ctx, body); err != nil {
		if errors.Is(err, ErrUnexpectedStatus) {
			w.logger.Error(err.Error(), "readings", len(readings))
		} else {
			w.logger.Error("Error sending data", "error", err, "readings", len(readings))
		}

		if w.cfg.RequeueOnFailure {
			if dropped := w.queue.Requeue(readings, w.cfg.RequeueCap); dropped > 0 {
				w.logger.Warn("Requeue cap reached, dropped oldest readings", "dropped", dropped)
			}
		}
		return err
	}
	return nil
}

func (w *Worker) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", w.auth.AuthorizationHeader())

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: got HTTP status %d sending data", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
