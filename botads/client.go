package botads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL is the production Client API.
	DefaultBaseURL = "https://api.botads.app"
	// DefaultTimeout bounds a single CreateCode call.
	DefaultTimeout = 10 * time.Second

	codesPath       = "/client/v1/codes"
	maxResponseSize = 1 << 20
)

// CodeResponse is a short code issued for a bot user.
type CodeResponse struct {
	Code      string    `json:"code"`
	BotID     string    `json:"bot_id"`
	UserTgID  string    `json:"user_tg_id"`
	ExpiresIn int64     `json:"expires_in,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// CodeResult is delivered by CreateCodeAsync. Exactly one of Response and Err is set.
type CodeResult struct {
	Response *CodeResponse
	Err      error
}

// Client calls the Botads Client API. It holds only immutable configuration and is safe
// for concurrent use.
type Client struct {
	baseURL    string
	timeout    time.Duration
	base       http.RoundTripper
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewClient returns a Client for baseURL authenticating with apiToken as a bearer token.
func NewClient(baseURL, apiToken string, opts ...ClientOption) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("botads: invalid base url %q: %w", baseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("botads: invalid base url %q", baseURL)
	}
	if strings.TrimSpace(apiToken) == "" {
		return nil, fmt.Errorf("botads: api token is required")
	}

	cfg := clientConfig{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	base := http.DefaultTransport
	if cfg.httpClient != nil && cfg.httpClient.Transport != nil {
		base = cfg.httpClient.Transport
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		baseURL: baseURL,
		timeout: cfg.timeout,
		base:    base,
		httpClient: &http.Client{
			Transport: &oauth2.Transport{
				Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(apiToken)}),
				Base:   base,
			},
		},
		userAgent: cfg.userAgent,
		logger:    cfg.logger,
	}, nil
}

type createCodeRequest struct {
	BotID    string `json:"bot_id"`
	UserTgID string `json:"user_tg_id"`
}

type createCodeResponse struct {
	Code      *string `json:"code"`
	ExpiresIn *int64  `json:"expires_in"`
	ExpiresAt *string `json:"expires_at"`
}

// CreateCode requests a new short code for the given bot and Telegram user.
func (c *Client) CreateCode(ctx context.Context, botID, userTgID string) (*CodeResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	endpoint := c.baseURL + codesPath
	body, err := json.Marshal(createCodeRequest{BotID: botID, UserTgID: userTgID})
	if err != nil {
		return nil, fmt.Errorf("botads: encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("botads: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	logger := c.logger.With(slog.String("botID", botID), slog.String("userTgID", userTgID))
	logger.Debug("requesting short code...")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("short code request failed", slog.Any("error", err))
		return nil, &TransportError{Op: http.MethodPost, URL: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &TransportError{Op: "read", URL: endpoint, Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		logger.Info("short code rejected", slog.Int("status", apiErr.StatusCode), slog.String("code", apiErr.Code))
		return nil, apiErr
	}

	code, err := parseCodeResponse(resp.StatusCode, respBody)
	if err != nil {
		return nil, err
	}
	code.BotID = botID
	code.UserTgID = userTgID
	logger.Debug("short code issued", slog.String("code", code.Code))
	return code, nil
}

// CreateCodeAsync performs CreateCode in its own goroutine. The returned channel receives
// exactly one result and is then closed.
func (c *Client) CreateCodeAsync(ctx context.Context, botID, userTgID string) <-chan CodeResult {
	ch := make(chan CodeResult, 1)
	go func() {
		defer close(ch)
		resp, err := c.CreateCode(ctx, botID, userTgID)
		ch <- CodeResult{Response: resp, Err: err}
	}()
	return ch
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() {
	if ci, ok := c.base.(interface{ CloseIdleConnections() }); ok {
		ci.CloseIdleConnections()
	}
}

func parseCodeResponse(status int, body []byte) (*CodeResponse, error) {
	unexpected := func(msg string) error {
		return &ApiError{StatusCode: status, Code: CodeUnexpectedResponse, Message: msg}
	}
	var decoded createCodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, unexpected(fmt.Sprintf("decoding response: %v", err))
	}
	if decoded.Code == nil || strings.TrimSpace(*decoded.Code) == "" {
		return nil, unexpected("response has no code")
	}
	out := &CodeResponse{Code: *decoded.Code}
	if decoded.ExpiresIn != nil {
		out.ExpiresIn = *decoded.ExpiresIn
	}
	if decoded.ExpiresAt != nil && *decoded.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339Nano, *decoded.ExpiresAt)
		if err != nil {
			return nil, unexpected(fmt.Sprintf("invalid expires_at: %v", err))
		}
		out.ExpiresAt = t
	}
	return out, nil
}

// parseAPIError understands both {"error": {"code", "message", "details"}} and
// {"error": "code", "message": "..."}.
func parseAPIError(status int, body []byte) *ApiError {
	fallback := &ApiError{StatusCode: status, Code: CodeUnknown, Message: strings.TrimSpace(string(body))}
	if fallback.Message == "" {
		fallback.Message = http.StatusText(status)
	}

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Details any             `json:"details"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return fallback
	}

	apiErr := &ApiError{StatusCode: status, Code: CodeUnknown, Message: envelope.Message, Details: envelope.Details}
	var kind string
	if err := json.Unmarshal(envelope.Error, &kind); err == nil {
		if kind != "" {
			apiErr.Code = kind
		}
	} else {
		var detail struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Details any    `json:"details"`
		}
		if err = json.Unmarshal(envelope.Error, &detail); err != nil {
			return fallback
		}
		if detail.Code != "" {
			apiErr.Code = detail.Code
		}
		if detail.Message != "" {
			apiErr.Message = detail.Message
		}
		if detail.Details != nil {
			apiErr.Details = detail.Details
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = "Unknown error"
	}
	return apiErr
}
