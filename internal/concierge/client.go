// Package concierge talks to the travel concierge API: the chat webhook and the
// bulk vector-database dump.
package concierge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTransport covers network failures and unreadable bodies.
	ErrTransport = errors.New("concierge api unreachable")
	// ErrStatus is wrapped by every *StatusError.
	ErrStatus = errors.New("concierge api returned an error status")
	// ErrMalformed means the body was not the JSON we expected.
	ErrMalformed = errors.New("concierge api returned a malformed body")
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Path, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// API is what the rest of the service needs from the upstream.
type API interface {
	SendMessage(ctx context.Context, req WebhookRequest) (*WebhookResponse, error)
	FetchCollections(ctx context.Context, limit int) (*CollectionsResponse, error)
}

// Client implements API over plain HTTP. A zero timeout leaves the
// transport defaults in place.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient returns a client rooted at baseURL; a trailing slash is dropped.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	return resp, nil
}

func (c *Client) decode(resp *http.Response, path string, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrTransport, path, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	return nil
}

// SendMessage posts one chat turn to the webhook. There is no retry.
func (c *Client) SendMessage(ctx context.Context, in WebhookRequest) (*WebhookResponse, error) {
	const path = "/webhook"
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, path, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	var out WebhookResponse
	if err := c.decode(resp, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchCollections downloads up to limit hotels and tours from the dump.
func (c *Client) FetchCollections(ctx context.Context, limit int) (*CollectionsResponse, error) {
	u := url.URL{Path: "/database/weaviate-data"}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	resp, err := c.do(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	var out CollectionsResponse
	if err := c.decode(resp, u.Path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
