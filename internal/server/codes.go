package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/botads/botads-go/botads"
	"github.com/botads/botads-go/internal/helpers"
)

// CodeIssuer is satisfied by *botads.Client.
type CodeIssuer interface {
	CreateCode(ctx context.Context, botID, userTgID string) (*botads.CodeResponse, error)
}

type codesHandler struct {
	issuer CodeIssuer
	botID  string
	logger *slog.Logger
}

type codesRequest struct {
	BotID    json.RawMessage `json:"bot_id"`
	UserTgID json.RawMessage `json:"user_tg_id"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (h *codesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		respondError(w, http.StatusBadRequest, botads.CodeValidation, "failed to read body", nil)
		return
	}
	var req codesRequest
	if err = json.Unmarshal(raw, &req); err != nil {
		respondError(w, http.StatusBadRequest, botads.CodeValidation, "body must be a JSON object", nil)
		return
	}
	userTgID, ok := identifier(req.UserTgID)
	if !ok {
		respondError(w, http.StatusBadRequest, botads.CodeValidation, "user_tg_id is required", nil)
		return
	}
	botID := h.botID
	if id, ok := identifier(req.BotID); ok {
		botID = id
	}
	if botID == "" {
		respondError(w, http.StatusBadRequest, botads.CodeValidation, "bot_id is required", nil)
		return
	}

	code, err := h.issuer.CreateCode(r.Context(), botID, userTgID)
	if err != nil {
		var apiErr *botads.ApiError
		var transportErr *botads.TransportError
		switch {
		case errors.As(err, &apiErr):
			status := apiErr.StatusCode
			if status < http.StatusBadRequest {
				status = http.StatusBadGateway
			}
			h.logger.Info("upstream rejected code request", slog.Int("status", apiErr.StatusCode), slog.String("code", apiErr.Code))
			respondError(w, status, apiErr.Code, apiErr.Message, apiErr.Details)
		case errors.As(err, &transportErr):
			status := http.StatusBadGateway
			if transportErr.Timeout() {
				status = http.StatusGatewayTimeout
			}
			h.logger.Warn("upstream unreachable", slog.Any("error", err))
			respondError(w, status, "TRANSPORT_ERROR", err.Error(), nil)
		default:
			h.logger.Error("failed to create code", slog.Any("error", err))
			respondError(w, http.StatusInternalServerError, botads.CodeInternal, err.Error(), nil)
		}
		return
	}
	helpers.RespondJSON(w, http.StatusOK, code)
}

// identifier accepts a non-empty JSON string or an integer.
func identifier(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		return s, s != ""
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	if _, err := n.Int64(); err != nil {
		return "", false
	}
	return n.String(), true
}

func respondError(w http.ResponseWriter, status int, code, message string, details any) {
	helpers.RespondJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message, Details: details}})
}
