// Package client talks to a running menubarmaid agent over its HTTP API.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sebfried/menubarmaid/internal/screenshot"
)

var (
	// ErrNotFound is returned when the agent does not know the requested id.
	ErrNotFound = errors.New("screenshot not found")
	// ErrStreamClosed is returned by Stream when the agent ends the stream.
	ErrStreamClosed = errors.New("stream closed by agent")
)

// Health is the agent's health report.
type Health struct {
	Status      string    `json:"status"`
	Version     string    `json:"version"`
	Time        time.Time `json:"time"`
	WatchedDir  string    `json:"watchedDir"`
	Buffered    int       `json:"buffered"`
	BufferSize  int       `json:"bufferSize"`
	Subscribers int       `json:"subscribers"`
}

type apiError struct {
	Error string `json:"error"`
}

type streamFrame struct {
	Type string            `json:"type"`
	Data *screenshot.Entry `json:"data,omitempty"`
}

// Client is an HTTP client for the agent API.
type Client struct {
	http *resty.Client
}

// New creates a client for the agent at baseURL (including any base path).
// A non-empty token is sent as a bearer token.
func New(baseURL, token string) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "menubarmaid-client/1.0")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

// Health fetches the agent's health report.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	resp, err := c.http.R().SetContext(ctx).SetResult(&h).SetError(&apiError{}).Get("/api/health")
	if err := check(resp, err, "health"); err != nil {
		return Health{}, err
	}
	return h, nil
}

// List returns up to limit recently detected screenshots, newest first. A
// non-positive limit leaves the choice to the agent.
func (c *Client) List(ctx context.Context, limit int) ([]screenshot.Entry, error) {
	var entries []screenshot.Entry
	req := c.http.R().SetContext(ctx).SetResult(&entries).SetError(&apiError{})
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	resp, err := req.Get("/api/screenshots")
	if err := check(resp, err, "listing screenshots"); err != nil {
		return nil, err
	}
	return entries, nil
}

// Get returns one screenshot by id.
func (c *Client) Get(ctx context.Context, id string) (screenshot.Entry, error) {
	var entry screenshot.Entry
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&entry).
		SetError(&apiError{}).
		Get("/api/screenshots/{id}")
	if err := check(resp, err, "getting screenshot"); err != nil {
		return screenshot.Entry{}, err
	}
	return entry, nil
}

// Download streams the image bytes of screenshot id into w.
func (c *Client) Download(ctx context.Context, id string, w io.Writer) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetDoNotParseResponse(true).
		Get("/api/screenshots/{id}/file")
	if err != nil {
		return fmt.Errorf("downloading screenshot: %w", err)
	}
	body := resp.RawBody()
	defer body.Close() //nolint:errcheck

	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("downloading screenshot: unexpected status %s", resp.Status())
	}
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("downloading screenshot: %w", err)
	}
	return nil
}

// Stream calls fn for every screenshot the agent detects until ctx ends or
// the agent closes the stream. It returns nil when ctx ends.
func (c *Client) Stream(ctx context.Context, fn func(screenshot.Entry)) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/event-stream").
		SetDoNotParseResponse(true).
		Get("/api/screenshots/stream")
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("opening stream: %w", err)
	}
	body := resp.RawBody()
	defer body.Close() //nolint:errcheck

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("opening stream: unexpected status %s", resp.Status())
	}

	sc := bufio.NewScanner(body)
	for sc.Scan() {
		payload, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var frame streamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			return fmt.Errorf("decoding stream frame: %w", err)
		}
		if frame.Type == "screenshot" && frame.Data != nil {
			fn(*frame.Data)
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reading stream: %w", err)
	}
	if ctx.Err() == nil {
		return ErrStreamClosed
	}
	return nil
}

func check(resp *resty.Response, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.IsError() {
		if e, ok := resp.Error().(*apiError); ok && e.Error != "" {
			return fmt.Errorf("%s: %s: %s", op, resp.Status(), e.Error)
		}
		return fmt.Errorf("%s: unexpected status %s", op, resp.Status())
	}
	return nil
}
