package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sebfried/menubarmaid/internal/event"
)

const (
	maxRetries     = 3
	requestTimeout = 10 * time.Second
	userAgent      = "menubarmaid-webhook/1.0"
)

// Dispatcher sends events to matching webhook endpoints.
type Dispatcher struct {
	endpoints  []Endpoint
	httpClient *http.Client
	logger     *slog.Logger
	backoff    time.Duration // first retry delay, doubled per attempt

	wg sync.WaitGroup
}

// NewDispatcher creates a webhook dispatcher.
func NewDispatcher(endpoints []Endpoint, logger *slog.Logger) *Dispatcher {
	return NewDispatcherWithHTTPClient(endpoints, &http.Client{Timeout: requestTimeout}, logger)
}

// NewDispatcherWithHTTPClient creates a dispatcher with a custom HTTP client (for testing).
func NewDispatcherWithHTTPClient(endpoints []Endpoint, httpClient *http.Client, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		endpoints:  endpoints,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "webhook-dispatcher")),
		backoff:    time.Second,
	}
}

// Subscribe registers HandleEvent on the bus for every event type an
// endpoint asked for. The caller cancels the returned subscriptions.
func (d *Dispatcher) Subscribe(bus *event.Bus) []*event.Subscription {
	var subs []*event.Subscription
	for _, t := range eventTypes(d.endpoints) {
		subs = append(subs, bus.Subscribe(t, d.HandleEvent))
	}
	return subs
}

// HandleEvent is an event.Handler that dispatches the event to all matching
// endpoints. Deliveries run in the background so the bus is never blocked.
func (d *Dispatcher) HandleEvent(e event.Event) {
	for _, ep := range d.endpoints {
		if !ep.Wants(e.Type) {
			continue
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.deliver(ep, e)
		}()
	}
}

// Wait blocks until all in-flight deliveries have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ep Endpoint, e event.Event) {
	body, contentType := formatPayload(&ep, e)

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			time.Sleep(d.backoff << uint(attempt-1))
		}

		lastErr = d.send(ep.URL, body, contentType)
		if lastErr == nil {
			d.logger.Debug("webhook delivered",
				"webhook", ep.Name,
				"event", string(e.Type),
				"attempt", attempt+1,
			)
			return
		}

		d.logger.Warn("webhook delivery failed",
			"webhook", ep.Name,
			"event", string(e.Type),
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	d.logger.Error("webhook delivery exhausted retries",
		"webhook", ep.Name,
		"event", string(e.Type),
		"error", lastErr,
	)
}

func (d *Dispatcher) send(url string, body []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()        //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
