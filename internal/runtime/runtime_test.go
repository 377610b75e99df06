package runtime_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/botads/botads-go/botads"
	"github.com/botads/botads-go/internal/handler"
	"github.com/botads/botads-go/internal/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "BOT_API_TOKEN"

var body = `{"event":"rewarded","bot_id":"1","user_tg_id":"42"}`

func newRuntime(t *testing.T, opts ...runtime.Option) (*runtime.Runtime, *[]*botads.WebhookPayload) {
	t.Helper()
	var received []*botads.WebhookPayload
	hdl, err := handler.NewWebhookHandler(
		handler.WithWebhookSecret(secret),
		handler.WithEventHandler(handler.EventHandlerFunc(func(_ context.Context, p *botads.WebhookPayload) error {
			received = append(received, p)
			return nil
		})),
	)
	require.NoError(t, err)
	return runtime.NewRuntime(hdl, opts...), &received
}

func TestRuntime_ServeHTTP(t *testing.T) {
	testCases := []struct {
		Name           string
		Method         string
		Signature      string
		ExpectedStatus int
		ExpectedBody   string
	}{
		{
			Name:           "method_not_allowed",
			Method:         http.MethodGet,
			ExpectedStatus: http.StatusMethodNotAllowed,
		},
		{
			Name:           "missing_signature",
			Method:         http.MethodPost,
			ExpectedStatus: http.StatusUnauthorized,
		},
		{
			Name:           "wrong_signature",
			Method:         http.MethodPost,
			Signature:      botads.Sign([]byte(body), "other"),
			ExpectedStatus: http.StatusUnauthorized,
		},
		{
			Name:           "valid",
			Method:         http.MethodPost,
			Signature:      botads.Sign([]byte(body), secret),
			ExpectedStatus: http.StatusOK,
			ExpectedBody:   `{"message":"ok"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			rtm, received := newRuntime(t)
			req := httptest.NewRequest(tc.Method, "/botads/webhook", strings.NewReader(body))
			if tc.Signature != "" {
				req.Header.Set(botads.SignatureHeader, tc.Signature)
			}
			rr := httptest.NewRecorder()
			rtm.ServeHTTP(rr, req)

			assert.Equal(t, tc.ExpectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			if tc.ExpectedBody != "" {
				assert.JSONEq(t, tc.ExpectedBody, rr.Body.String())
			}
			assert.Equal(t, tc.ExpectedStatus == http.StatusOK, len(*received) == 1)
		})
	}
}

func TestRuntime_ServeHTTP_BodyTooLarge(t *testing.T) {
	large := `{"event":"rewarded","bot_id":"1","user_tg_id":"42","data":{"pad":"` + strings.Repeat("x", 1<<20) + `"}}`
	rtm, received := newRuntime(t)
	req := httptest.NewRequest(http.MethodPost, "/botads/webhook", strings.NewReader(large))
	req.Header.Set(botads.SignatureHeader, botads.Sign([]byte(large), secret))
	rr := httptest.NewRecorder()
	rtm.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.JSONEq(t, `{"message":"request body too large"}`, rr.Body.String())
	assert.Empty(t, *received)
}

func TestRuntime_Lambda(t *testing.T) {
	signature := botads.Sign([]byte(body), secret)
	encoded := base64.StdEncoding.EncodeToString([]byte(body))

	testCases := []struct {
		Name           string
		PayloadType    string
		Event          any
		ExpectedStatus int
	}{
		{
			Name:        "api_gateway_v1",
			PayloadType: runtime.PayloadAPIGatewayV1,
			Event: events.APIGatewayProxyRequest{
				Body:    body,
				Headers: map[string]string{"X-Signature": signature},
			},
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:        "api_gateway_v2_base64",
			PayloadType: runtime.PayloadAPIGatewayV2,
			Event: events.APIGatewayV2HTTPRequest{
				Body:            encoded,
				IsBase64Encoded: true,
				Headers:         map[string]string{"x-signature": signature},
			},
			ExpectedStatus: http.StatusOK,
		},
		{
			Name:        "lambda_url_bad_signature",
			PayloadType: runtime.PayloadLambdaURL,
			Event: events.LambdaFunctionURLRequest{
				Body:    body,
				Headers: map[string]string{"x-signature": "deadbeef"},
			},
			ExpectedStatus: http.StatusUnauthorized,
		},
		{
			Name:        "invalid_base64",
			PayloadType: runtime.PayloadAPIGatewayV2,
			Event: events.APIGatewayV2HTTPRequest{
				Body:            "%%%",
				IsBase64Encoded: true,
				Headers:         map[string]string{"x-signature": signature},
			},
			ExpectedStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			rtm, received := newRuntime(t, runtime.WithPayloadType(tc.PayloadType))
			raw, err := json.Marshal(tc.Event)
			require.NoError(t, err)

			resp, err := rtm.Lambda(t.Context(), raw)
			require.NoError(t, err)

			var status int
			switch r := resp.(type) {
			case events.APIGatewayProxyResponse:
				status = r.StatusCode
			case events.APIGatewayV2HTTPResponse:
				status = r.StatusCode
			case events.LambdaFunctionURLResponse:
				status = r.StatusCode
			default:
				t.Fatalf("unexpected response type %T", resp)
			}
			assert.Equal(t, tc.ExpectedStatus, status)
			assert.Equal(t, tc.ExpectedStatus == http.StatusOK, len(*received) == 1)
		})
	}
}

func TestRuntime_Lambda_UnsupportedPayloadType(t *testing.T) {
	rtm, _ := newRuntime(t, runtime.WithPayloadType("sqs"))
	_, err := rtm.Lambda(t.Context(), json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "unsupported lambda payload type")
}
