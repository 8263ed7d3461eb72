package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/espbridge/espbridge/core/provider"
)

// DefaultTimeout bounds a single provider API call when no client is supplied.
const DefaultTimeout = 30 * time.Second

// MaxResponseBytes caps how much of a provider response body is read.
// Provider APIs return small JSON documents; anything larger is truncated.
const MaxResponseBytes = 1 << 20

// HTTPTransport executes provider requests over HTTP. The zero value is
// not usable; construct with New.
type HTTPTransport struct {
	client *http.Client
}

// Option configures an HTTPTransport.
type Option func(*HTTPTransport)

// WithHTTPClient replaces the default client. Useful for custom TLS
// settings, proxies, or request signing round trippers.
func WithHTTPClient(client *http.Client) Option {
	return func(t *HTTPTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithTimeout sets the per-request timeout on the default client. Ignored
// when WithHTTPClient is also supplied with a non-nil client.
func WithTimeout(timeout time.Duration) Option {
	return func(t *HTTPTransport) {
		if timeout > 0 {
			t.client.Timeout = timeout
		}
	}
}

// New creates an HTTP transport for provider API calls.
func New(opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Do executes the wire request and returns the provider's response with the
// body fully read. Network and protocol failures return an error; non-2xx
// statuses do not, as status interpretation belongs to the provider.
func (t *HTTPTransport) Do(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &provider.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
