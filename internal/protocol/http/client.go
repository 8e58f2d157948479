// Package http executes outbound HTTP requests and measures their
// timing and size.
package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"restdeck/internal/core"
)

// Client executes send payloads over HTTP.
type Client struct {
	httpClient *http.Client
	config     Config
}

// Config holds HTTP client configuration.
type Config struct {
	Timeout        time.Duration
	FollowRedirect bool
}

// Option is a function that configures the Client.
type Option func(*Client)

// NewClient creates a new HTTP client with the given options. The
// client carries a cookie jar so session cookies survive across sends.
func NewClient(opts ...Option) *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})

	client := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		config: Config{
			Timeout:        30 * time.Second,
			FollowRedirect: true,
		},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// WithTimeout sets the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.config.Timeout = timeout
		c.httpClient.Timeout = timeout
	}
}

// WithNoRedirects disables automatic redirect following.
func WithNoRedirects() Option {
	return func(c *Client) {
		c.config.FollowRedirect = false
		c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
}

// WithTransport sets a custom HTTP transport.
func WithTransport(transport http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = transport
	}
}

// Send executes the payload and returns the measured response.
func (c *Client) Send(ctx context.Context, payload core.SendPayload) (*core.Response, error) {
	if payload.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(payload.Timeout)*time.Second)
		defer cancel()
	}

	httpReq, err := c.toHTTPRequest(ctx, payload)
	if err != nil {
		return nil, err
	}

	startTime := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(startTime)

	return fromHTTPResponse(httpResp, bodyBytes, elapsed), nil
}

func (c *Client) toHTTPRequest(ctx context.Context, payload core.SendPayload) (*http.Request, error) {
	var bodyReader io.Reader
	var contentType string
	if payload.Body != nil {
		content, ct, err := payload.Body.Payload()
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(content)
		contentType = ct
	}

	httpReq, err := http.NewRequestWithContext(ctx, payload.Method, payload.URL, bodyReader)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for key, value := range payload.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func fromHTTPResponse(httpResp *http.Response, bodyBytes []byte, elapsed time.Duration) *core.Response {
	headers := make(map[string]string, len(httpResp.Header))
	for key, values := range httpResp.Header {
		headers[key] = strings.Join(values, ", ")
	}

	return &core.Response{
		Status:       httpResp.StatusCode,
		StatusText:   statusText(httpResp),
		Headers:      headers,
		Body:         string(bodyBytes),
		ResponseTime: elapsed.Milliseconds(),
		Size:         int64(len(bodyBytes)),
	}
}

func statusText(httpResp *http.Response) string {
	// http.Response.Status is "200 OK"; keep only the text part. A
	// hand-built response may carry a shorter Status string.
	if len(httpResp.Status) > 3 {
		if text := strings.TrimSpace(httpResp.Status[3:]); text != "" {
			return text
		}
	}
	return http.StatusText(httpResp.StatusCode)
}
