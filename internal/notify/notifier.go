// Package notify dispatches notification triggers to the external
// notification relay (the service that renders and sends the actual mails).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"participa/internal/domain/services"
)

const dispatchTimeout = 10 * time.Second

// HTTPNotifier posts notification events to the relay. Dispatch is
// fire-and-forget: delivery happens on its own goroutine with its own
// timeout, and failures are logged, never returned. A lost mail must not
// fail the write that triggered it.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPNotifier creates a notifier posting to baseURL.
func NewHTTPNotifier(baseURL string, logger *slog.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: dispatchTimeout},
		logger:  logger,
	}
}

type event struct {
	Kind    services.NotificationKind `json:"kind"`
	Payload map[string]string         `json:"payload"`
}

// Notify implements services.Notifier.
func (n *HTTPNotifier) Notify(_ context.Context, kind services.NotificationKind, payload map[string]string) {
	// The request context may be cancelled the moment the response is
	// written; dispatch gets its own deadline instead.
	go n.dispatch(kind, payload)
}

func (n *HTTPNotifier) dispatch(kind services.NotificationKind, payload map[string]string) {
	body, err := json.Marshal(event{Kind: kind, Payload: payload})
	if err != nil {
		n.logger.Error("encode notification", "kind", kind, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/events/%s", n.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("build notification request", "kind", kind, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("notification dispatch failed", "kind", kind, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.logger.Warn("notification relay rejected event", "kind", kind, "status", resp.StatusCode)
		return
	}
	n.logger.Debug("notification dispatched", "kind", kind)
}
