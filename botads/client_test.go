package botads_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/botads/botads-go/botads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          map[string]string
}

func newTestServer(t *testing.T, status int, body string, recorded *recordedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if recorded != nil {
			recorded.Method = r.Method
			recorded.Path = r.URL.Path
			recorded.Authorization = r.Header.Get("Authorization")
			recorded.ContentType = r.Header.Get("Content-Type")
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &recorded.Body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewClient(t *testing.T) {
	testCases := []struct {
		Name        string
		BaseURL     string
		Token       string
		ExpectError bool
	}{
		{Name: "valid", BaseURL: "https://api.botads.app", Token: "t"},
		{Name: "trailing_slash", BaseURL: "https://api.botads.app/", Token: "t"},
		{Name: "default_base_url", BaseURL: "", Token: "t"},
		{Name: "missing_token", BaseURL: "https://api.botads.app", Token: " ", ExpectError: true},
		{Name: "invalid_scheme", BaseURL: "ftp://api.botads.app", Token: "t", ExpectError: true},
		{Name: "missing_host", BaseURL: "http://", Token: "t", ExpectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			client, err := botads.NewClient(tc.BaseURL, tc.Token)
			if tc.ExpectError {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestClient_CreateCode(t *testing.T) {
	var recorded recordedRequest
	srv := newTestServer(t, http.StatusOK, `{"code":"ABC123"}`, &recorded)

	client, err := botads.NewClient(srv.URL+"/", "BOT_API_TOKEN")
	require.NoError(t, err)

	code, err := client.CreateCode(context.Background(), "1", "42")
	require.NoError(t, err)
	assert.Equal(t, &botads.CodeResponse{Code: "ABC123", BotID: "1", UserTgID: "42"}, code)

	assert.Equal(t, http.MethodPost, recorded.Method)
	assert.Equal(t, "/client/v1/codes", recorded.Path)
	assert.Equal(t, "Bearer BOT_API_TOKEN", recorded.Authorization)
	assert.Equal(t, "application/json", recorded.ContentType)
	assert.Equal(t, map[string]string{"bot_id": "1", "user_tg_id": "42"}, recorded.Body)
}

func TestClient_CreateCode_WithExpiry(t *testing.T) {
	srv := newTestServer(t, http.StatusCreated, `{"code":"XYZ","expires_in":300,"expires_at":"2026-10-14T12:05:00Z"}`, nil)
	client, err := botads.NewClient(srv.URL, "t")
	require.NoError(t, err)

	code, err := client.CreateCode(context.Background(), "1", "42")
	require.NoError(t, err)
	assert.Equal(t, "XYZ", code.Code)
	assert.Equal(t, int64(300), code.ExpiresIn)
	assert.True(t, time.Date(2026, 10, 14, 12, 5, 0, 0, time.UTC).Equal(code.ExpiresAt))
}

func TestClient_CreateCode_ApiErrors(t *testing.T) {
	testCases := []struct {
		Name            string
		Status          int
		Body            string
		ExpectedCode    string
		ExpectedMessage string
	}{
		{
			Name:         "rate_limited_string_kind",
			Status:       http.StatusTooManyRequests,
			Body:         `{"error":"rate_limited"}`,
			ExpectedCode: "rate_limited",
		},
		{
			Name:            "structured_error",
			Status:          http.StatusUnauthorized,
			Body:            `{"error":{"code":"UNAUTHORIZED","message":"invalid token","details":{"hint":"rotate"}}}`,
			ExpectedCode:    botads.CodeUnauthorized,
			ExpectedMessage: "invalid token",
		},
		{
			Name:            "string_kind_with_message",
			Status:          http.StatusBadRequest,
			Body:            `{"error":"VALIDATION_ERROR","message":"user_tg_id is required"}`,
			ExpectedCode:    botads.CodeValidation,
			ExpectedMessage: "user_tg_id is required",
		},
		{
			Name:            "unparseable_body",
			Status:          http.StatusBadGateway,
			Body:            `<html>bad gateway</html>`,
			ExpectedCode:    botads.CodeUnknown,
			ExpectedMessage: "<html>bad gateway</html>",
		},
		{
			Name:            "empty_body",
			Status:          http.StatusInternalServerError,
			Body:            ``,
			ExpectedCode:    botads.CodeUnknown,
			ExpectedMessage: "Internal Server Error",
		},
		{
			Name:         "success_without_code",
			Status:       http.StatusOK,
			Body:         `{"status":"ok"}`,
			ExpectedCode: botads.CodeUnexpectedResponse,
		},
		{
			Name:         "success_with_unparseable_body",
			Status:       http.StatusOK,
			Body:         `ok`,
			ExpectedCode: botads.CodeUnexpectedResponse,
		},
		{
			Name:         "success_with_wrong_code_type",
			Status:       http.StatusOK,
			Body:         `{"code":123}`,
			ExpectedCode: botads.CodeUnexpectedResponse,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			srv := newTestServer(t, tc.Status, tc.Body, nil)
			client, err := botads.NewClient(srv.URL, "t")
			require.NoError(t, err)

			code, err := client.CreateCode(context.Background(), "1", "42")
			assert.Nil(t, code)
			var apiErr *botads.ApiError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.Status, apiErr.StatusCode)
			assert.Equal(t, tc.ExpectedCode, apiErr.Code)
			if tc.ExpectedMessage != "" {
				assert.Equal(t, tc.ExpectedMessage, apiErr.Message)
			}
			var transportErr *botads.TransportError
			assert.False(t, errors.As(err, &transportErr))
		})
	}
}

func TestClient_CreateCode_RateLimited(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests, `{"error":"rate_limited"}`, nil)
	client, err := botads.NewClient(srv.URL, "t")
	require.NoError(t, err)

	_, err = client.CreateCode(context.Background(), "1", "42")
	var apiErr *botads.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 429, apiErr.StatusCode)
	assert.Equal(t, "rate_limited", apiErr.Code)
	assert.True(t, apiErr.IsRateLimited())
}

func TestClient_CreateCode_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client, err := botads.NewClient(srv.URL, "t", botads.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	code, err := client.CreateCode(context.Background(), "1", "42")
	assert.Nil(t, code)
	var transportErr *botads.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Timeout())
	var apiErr *botads.ApiError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_CreateCode_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := botads.NewClient(url, "t")
	require.NoError(t, err)

	_, err = client.CreateCode(context.Background(), "1", "42")
	var transportErr *botads.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, url+"/client/v1/codes", transportErr.URL)
}

func TestClient_CreateCode_ContextCanceled(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"code":"ABC123"}`, nil)
	client, err := botads.NewClient(srv.URL, "t")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.CreateCode(ctx, "1", "42")
	var transportErr *botads.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_CreateCodeAsync(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := newTestServer(t, http.StatusOK, `{"code":"ABC123"}`, nil)
		client, err := botads.NewClient(srv.URL, "t")
		require.NoError(t, err)

		result := <-client.CreateCodeAsync(context.Background(), "1", "42")
		require.NoError(t, result.Err)
		assert.Equal(t, &botads.CodeResponse{Code: "ABC123", BotID: "1", UserTgID: "42"}, result.Response)
	})

	t.Run("api_error", func(t *testing.T) {
		srv := newTestServer(t, http.StatusTooManyRequests, `{"error":"rate_limited"}`, nil)
		client, err := botads.NewClient(srv.URL, "t")
		require.NoError(t, err)

		result := <-client.CreateCodeAsync(context.Background(), "1", "42")
		assert.Nil(t, result.Response)
		var apiErr *botads.ApiError
		require.ErrorAs(t, result.Err, &apiErr)
		assert.Equal(t, "rate_limited", apiErr.Code)
	})

	t.Run("does_not_block_caller", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
			_, _ = io.WriteString(w, `{"code":"LATE"}`)
		}))
		t.Cleanup(srv.Close)
		client, err := botads.NewClient(srv.URL, "t")
		require.NoError(t, err)

		ch := client.CreateCodeAsync(context.Background(), "1", "42")
		select {
		case <-ch:
			t.Fatal("result delivered before the upstream answered")
		default:
		}
		close(release)

		result, ok := <-ch
		require.True(t, ok)
		require.NoError(t, result.Err)
		assert.Equal(t, "LATE", result.Response.Code)
		_, ok = <-ch
		assert.False(t, ok, "channel must be closed after the result")
	})
}

type countingTransport struct {
	base       http.RoundTripper
	requests   int
	idleCloses int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.requests++
	return c.base.RoundTrip(req)
}

func (c *countingTransport) CloseIdleConnections() {
	c.idleCloses++
}

func TestClient_Close(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"code":"ABC123"}`, nil)
	transport := &countingTransport{base: http.DefaultTransport}
	client, err := botads.NewClient(srv.URL, "t", botads.WithHTTPClient(&http.Client{Transport: transport}))
	require.NoError(t, err)

	_, err = client.CreateCode(context.Background(), "1", "42")
	require.NoError(t, err)
	assert.Equal(t, 1, transport.requests)

	client.Close()
	assert.Equal(t, 1, transport.idleCloses)
}

func TestClient_CreateCode_TimeoutFromContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	client, err := botads.NewClient(srv.URL, "t", botads.WithTimeout(time.Hour))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.CreateCode(ctx, "1", "42")
	var transportErr *botads.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Timeout())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
