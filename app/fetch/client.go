package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http2"
)

const (
	DefaultTimeout = 20 * time.Second
	maxBodySize    = 32 << 20
)

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

// Getter is the HTTP capability the harvesters depend on.
type Getter interface {
	Get(ctx context.Context, rawURL string, params url.Values) (*Response, error)
}

var _ Getter = (*Client)(nil)

type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
}

// Client performs GET requests over an HTTP/2-capable transport with a fixed
// timeout and a default header set.
type Client struct {
	httpClient *http.Client
	headers    http.Header
	timeout    time.Duration
}

func NewClient(opts Options) (*Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to configure HTTP/2 transport: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	headers := make(http.Header)
	headers.Set("Accept", "*/*")
	if opts.UserAgent != "" {
		headers.Set("User-Agent", opts.UserAgent)
	}
	for k, v := range opts.Headers {
		headers.Set(k, v)
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		headers:    headers,
		timeout:    timeout,
	}, nil
}

// WithHeaders returns a client sharing the same transport with extra default
// headers. Empty values are ignored.
func (c *Client) WithHeaders(extra map[string]string) *Client {
	headers := c.headers.Clone()
	for k, v := range extra {
		if v != "" {
			headers.Set(k, v)
		}
	}
	return &Client{
		httpClient: c.httpClient,
		headers:    headers,
		timeout:    c.timeout,
	}
}

func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*Response, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + params.Encode()
	}

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, values := range c.headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
