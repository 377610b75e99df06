package botads

import (
	"log/slog"
	"net/http"
	"time"
)

type clientConfig struct {
	timeout    time.Duration
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// ClientOption configures a Client at construction.
type ClientOption func(*clientConfig)

// WithTimeout bounds each request, including reading the response body. Zero disables the limit.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithHTTPClient reuses the transport of client. Its timeout is ignored; use WithTimeout.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = userAgent
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}
