// Package runtime adapts the webhook handler to net/http and to AWS Lambda events.
package runtime

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/botads/botads-go/internal/handler"
	"github.com/botads/botads-go/internal/helpers"
	"github.com/botads/botads-go/internal/models"
	"github.com/google/uuid"
)

// Supported Lambda payload types.
const (
	PayloadAPIGatewayV1 = "api-gateway-v1"
	PayloadAPIGatewayV2 = "api-gateway-v2"
	PayloadLambdaURL    = "lambda-url"
)

const maxBodySize = 1 << 20

// Processor is satisfied by *handler.Handler.
type Processor interface {
	ProcessContext(ctx context.Context, body []byte, headers map[string]string) (models.Response, error)
}

var _ Processor = (*handler.Handler)(nil)

type Option func(*Runtime)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		r.logger = logger
	}
}

// WithPayloadType selects the Lambda event shape.
func WithPayloadType(payloadType string) Option {
	return func(r *Runtime) {
		r.payloadType = payloadType
	}
}

type Runtime struct {
	processor   Processor
	logger      *slog.Logger
	payloadType string
}

// NewRuntime creates a new runtime instance
func NewRuntime(processor Processor, opts ...Option) *Runtime {
	_inst := &Runtime{processor: processor, payloadType: PayloadAPIGatewayV2}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

// Lambda is the Lambda handler for the runtime. Processing failures are reported through the
// response status, not as invocation errors.
func (r *Runtime) Lambda(ctx context.Context, event json.RawMessage) (any, error) {
	requestID := uuid.NewString()
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		requestID = lc.AwsRequestID
	}
	logger := r.logger.With(slog.String("requestID", requestID), slog.String("payloadType", r.payloadType))
	logger.Info("received lambda request")

	var (
		req models.Request
		b64 bool
	)
	switch r.payloadType {
	case PayloadAPIGatewayV1:
		var e events.APIGatewayProxyRequest
		if err := json.Unmarshal(event, &e); err != nil {
			return nil, fmt.Errorf("decoding %s event: %w", r.payloadType, err)
		}
		req, b64 = models.Request{Body: e.Body, Headers: e.Headers}, e.IsBase64Encoded
	case PayloadAPIGatewayV2:
		var e events.APIGatewayV2HTTPRequest
		if err := json.Unmarshal(event, &e); err != nil {
			return nil, fmt.Errorf("decoding %s event: %w", r.payloadType, err)
		}
		req, b64 = models.Request{Body: e.Body, Headers: e.Headers}, e.IsBase64Encoded
	case PayloadLambdaURL:
		var e events.LambdaFunctionURLRequest
		if err := json.Unmarshal(event, &e); err != nil {
			return nil, fmt.Errorf("decoding %s event: %w", r.payloadType, err)
		}
		req, b64 = models.Request{Body: e.Body, Headers: e.Headers}, e.IsBase64Encoded
	default:
		return nil, fmt.Errorf("unsupported lambda payload type: %s", r.payloadType)
	}

	result := r.handle(ctx, logger, req, b64)
	headers := map[string]string{"Content-Type": "text/plain; charset=utf-8"}
	switch r.payloadType {
	case PayloadAPIGatewayV1:
		return events.APIGatewayProxyResponse{Body: result.Body, StatusCode: result.StatusCode, Headers: headers}, nil
	case PayloadAPIGatewayV2:
		return events.APIGatewayV2HTTPResponse{Body: result.Body, StatusCode: result.StatusCode, Headers: headers}, nil
	default:
		return events.LambdaFunctionURLResponse{Body: result.Body, StatusCode: result.StatusCode, Headers: headers}, nil
	}
}

func (r *Runtime) handle(ctx context.Context, logger *slog.Logger, req models.Request, b64 bool) models.Response {
	body := []byte(req.Body)
	if b64 {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			logger.Warn("failed to decode base64 body", slog.Any("error", err))
			return models.Response{Body: "invalid base64 body", StatusCode: http.StatusBadRequest}
		}
		body = decoded
	}
	headers := make(map[string]string, len(req.Headers))
	for k, v := range req.Headers {
		headers[strings.ToLower(k)] = v
	}
	result, err := r.processor.ProcessContext(ctx, body, headers)
	if err != nil {
		logger.Info("webhook rejected", slog.Int("status", result.StatusCode), slog.Any("error", err))
	}
	return result
}

// ServeHTTP is the HTTP handler for the runtime
func (r *Runtime) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	logger := r.logger.With(slog.String("requestID", uuid.NewString()))
	switch req.Method {
	case http.MethodPost:
		break
	default:
		logger.Debug("rejecting HTTP request...", slog.Any("requestor", req.RemoteAddr), "reason", "method not allowed", slog.Any("method", req.Method))
		resp.Header().Set("Allow", http.MethodPost)
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusMethodNotAllowed, Body: "method not allowed"}, nil, resp)
		return
	}

	logger.Debug("received HTTP request...", slog.Any("requestor", req.RemoteAddr), slog.Any("path", req.URL.Path))
	body, err := io.ReadAll(http.MaxBytesReader(resp, req.Body, maxBodySize))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		logger.Info("rejecting HTTP request...", slog.Any("requestor", req.RemoteAddr), "reason", "body too large", slog.Int64("limit", tooLarge.Limit))
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusRequestEntityTooLarge, Body: "request body too large"}, nil, resp)
		return
	}
	if err != nil {
		logger.Error("failed to read request body", slog.Any("error", err))
		helpers.RespondHTTP(models.Response{StatusCode: http.StatusInternalServerError}, err, resp)
		return
	}
	result, err := r.processor.ProcessContext(req.Context(), body, helpers.LowerHeaders(req.Header))
	if err != nil {
		logger.Info("webhook rejected", slog.Int("status", result.StatusCode), slog.Any("error", err))
	}
	helpers.RespondHTTP(result, err, resp)
}
