package retry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// Deliverer sends one queued event to its destinations.
// A nil error means the event was accepted and can be removed.
type Deliverer interface {
	Deliver(ctx context.Context, ev QueuedEvent) error
}

// PartialDeliveryError reports a delivery that reached some of an event's
// Targets. The queue drops the delivered names so the next attempt goes
// only to the rest.
type PartialDeliveryError struct {
	Delivered []string
	Err       error
}

func (e *PartialDeliveryError) Error() string {
	return fmt.Sprintf("delivered to %s: %v", strings.Join(e.Delivered, ","), e.Err)
}

func (e *PartialDeliveryError) Unwrap() error {
	return e.Err
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, ev QueuedEvent) error

// Deliver implements Deliverer.
func (f DelivererFunc) Deliver(ctx context.Context, ev QueuedEvent) error {
	return f(ctx, ev)
}

// Payload is the JSON body posted to the ingestion endpoint.
type Payload struct {
	Event      string           `json:"event"`
	Properties value.Properties `json:"properties"`
	Timestamp  string           `json:"timestamp"`
}

// NewPayload builds a payload, formatting ts as RFC 3339 UTC.
func NewPayload(name string, props value.Properties, ts time.Time) Payload {
	return Payload{
		Event:      name,
		Properties: props,
		Timestamp:  ts.UTC().Format(time.RFC3339),
	}
}

// maxErrorBody bounds how much of a failed response is kept in the error.
const maxErrorBody = 512

// HTTPDeliverer posts events as JSON to an ingestion endpoint.
type HTTPDeliverer struct {
	endpoint string
	client   *http.Client
	headers  http.Header
}

// HTTPOption configures an HTTPDeliverer.
type HTTPOption func(*HTTPDeliverer)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(d *HTTPDeliverer) {
		d.client = c
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(timeout time.Duration) HTTPOption {
	return func(d *HTTPDeliverer) {
		d.client = &http.Client{Timeout: timeout}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, val string) HTTPOption {
	return func(d *HTTPDeliverer) {
		d.headers.Add(key, val)
	}
}

// NewHTTPDeliverer creates a deliverer posting to endpoint.
func NewHTTPDeliverer(endpoint string, opts ...HTTPOption) *HTTPDeliverer {
	d := &HTTPDeliverer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		headers:  http.Header{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Endpoint returns the target URL.
func (d *HTTPDeliverer) Endpoint() string { return d.endpoint }

// Deliver implements Deliverer. The event's original timestamp is sent.
func (d *HTTPDeliverer) Deliver(ctx context.Context, ev QueuedEvent) error {
	return d.Send(ctx, NewPayload(ev.EventName, ev.Properties, ev.Timestamp))
}

// Send posts p. Any 2xx status is success; other statuses return
// *errors.HTTPError and transport failures are categorized transient.
func (d *HTTPDeliverer) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return errors.Permanent(fmt.Errorf("marshal payload: %w", err), "encode event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Permanent(fmt.Errorf("build request: %w", err), "encode event")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vals := range d.headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return errors.Transient(err, "post event")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &errors.HTTPError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(msg)),
		Endpoint:   d.endpoint,
	}
}
