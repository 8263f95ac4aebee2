// Package dispatch implements lead forwarding to downstream buyer
// endpoints. This file contains the HTTP dispatcher: it issues the webhook
// call built by BuildRequest against a route's configured URL and method,
// validates the response, and normalizes the outcome.
//
// Delivery semantics (deliberate, matching the ingestion contract):
//   - single attempt, no retry;
//   - bounded timeout so a hung endpoint cannot pile up pending work;
//   - the outcome never reaches the submitter; the caller persists it onto
//     the lead's webhook_response field after the HTTP response has already
//     been sent.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-leads-backend/internal/domain"
)

// ErrNoWebhook is returned when the route has no webhook configured.
// Callers should treat it as "nothing to do", not a failure.
var ErrNoWebhook = errors.New("route has no webhook configured")

// maxResponseBytes caps how much of a downstream response body is read.
const maxResponseBytes = 1 << 20

var dispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_dispatch_total",
		Help: "Total number of webhook dispatch attempts by outcome.",
	},
	[]string{"outcome"},
)

func init() {
	prometheus.MustRegister(dispatchTotal)
}

// Dispatcher performs single-attempt webhook deliveries.
type Dispatcher struct {
	client *http.Client
}

// NewDispatcher constructs a Dispatcher whose HTTP calls are bounded by
// timeout. Non-positive timeouts fall back to 10 seconds.
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{client: &http.Client{Timeout: timeout}}
}

// Dispatch sends the lead to the route's webhook and returns the raw
// downstream response payload on success.
//
// Failure cases (all returned as errors, never panics):
//   - network error or timeout;
//   - non-2xx status;
//   - response body whose JSON contains a non-empty "error" field;
//   - response body that is an HTML document (a misconfigured URL serving a
//     webpage instead of an API).
func (d *Dispatcher) Dispatch(ctx context.Context, route *domain.Route, lead *domain.Lead) (string, error) {
	if route == nil || !route.HasWebhook || strings.TrimSpace(route.URL) == "" {
		return "", ErrNoWebhook
	}

	body, headers := BuildRequest(route.Attributes, lead)

	payload, err := json.Marshal(body)
	if err != nil {
		dispatchTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("marshal webhook body: %w", err)
	}

	method := strings.ToUpper(strings.TrimSpace(route.Method))
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, route.URL, bytes.NewReader(payload))
	if err != nil {
		dispatchTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		dispatchTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		dispatchTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("read webhook response: %w", err)
	}
	text := string(raw)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		dispatchTotal.WithLabelValues("rejected").Inc()
		return "", fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	if msg := errorField(raw); msg != "" {
		dispatchTotal.WithLabelValues("rejected").Inc()
		return "", errors.New(msg)
	}
	if strings.HasPrefix(strings.TrimSpace(text), "<!DOCTYPE html") {
		dispatchTotal.WithLabelValues("rejected").Inc()
		return "", errors.New("invalid response from webhook URL or method")
	}

	dispatchTotal.WithLabelValues("ok").Inc()
	return text, nil
}

// ErrorPayload renders a dispatch failure as the JSON blob stored on the
// lead's webhook_response field.
func ErrorPayload(err error, at time.Time) string {
	blob, mErr := json.Marshal(map[string]string{
		"error":     err.Error(),
		"timestamp": at.UTC().Format(time.RFC3339),
	})
	if mErr != nil {
		return `{"error":"dispatch failed"}`
	}
	return string(blob)
}

// errorField extracts a non-empty "error" value from a JSON object body.
// Non-JSON or non-object bodies yield "".
func errorField(raw []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	v, ok := obj["error"]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	// Falsy error values do not signal failure; anything else does.
	switch t := strings.TrimSpace(string(v)); t {
	case "null", "false", "0":
		return ""
	default:
		return t
	}
}
