// Package httpclient wraps net/http with the small surface the RaceGrid
// client needs: bounded timeouts, default headers, and a response type with
// JSON decoding helpers.
//
// The wrapper never retries. Token exchanges and resource calls are exactly
// one attempt each; retry policy belongs to the caller.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every request so a hung provider cannot block all
// subsequent API usage.
const DefaultTimeout = 30 * time.Second

// Config holds HTTP client configuration.
type Config struct {
	Timeout        time.Duration
	DefaultHeaders map[string]string
}

// DefaultConfig returns the default HTTP client configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:        DefaultTimeout,
		DefaultHeaders: make(map[string]string),
	}
}

// Client wraps http.Client with common functionality.
type Client struct {
	httpClient *http.Client
	config     *Config
}

// New creates a new HTTP client with the given configuration.
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// Request represents an HTTP request.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    io.Reader
}

// Response wraps http.Response with the body already drained.
type Response struct {
	*http.Response
	BodyBytes []byte
}

// SafeClose closes the response body, tolerating nil receivers.
func (r *Response) SafeClose() error {
	if r == nil || r.Response == nil || r.Body == nil {
		return nil
	}
	return r.Body.Close()
}

// JSON unmarshals the response body into the provided value.
func (r *Response) JSON(v interface{}) error {
	if len(r.BodyBytes) == 0 {
		return fmt.Errorf("empty response body")
	}
	return json.Unmarshal(r.BodyBytes, v)
}

// String returns the response body as a string.
func (r *Response) String() string {
	return string(r.BodyBytes)
}

// Success reports whether the response carries a 2xx status.
func (r *Response) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Do performs a single HTTP request. A non-nil error means the provider was
// never reached or the body could not be read; HTTP-level rejections come
// back as a Response with a non-2xx status and a nil error, so callers can
// map them onto their own error taxonomy.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	for key, value := range c.config.DefaultHeaders {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		_ = httpResp.Body.Close()
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		Response:  httpResp,
		BodyBytes: bodyBytes,
	}, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:  http.MethodGet,
		URL:     url,
		Headers: headers,
	})
}

// PostForm performs a POST request with an application/x-www-form-urlencoded
// body.
func (c *Client) PostForm(ctx context.Context, url string, form url.Values, headers map[string]string) (*Response, error) {
	if headers == nil {
		headers = make(map[string]string)
	}
	headers["Content-Type"] = "application/x-www-form-urlencoded"

	return c.Do(ctx, &Request{
		Method:  http.MethodPost,
		URL:     url,
		Headers: headers,
		Body:    strings.NewReader(form.Encode()),
	})
}
