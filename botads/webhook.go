package botads

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Webhook event types sent by Botads. Unknown types are passed through unchanged.
const (
	EventRewarded    = "rewarded"
	EventDirectLink  = "direct_link"
	EventCodeCreated = "code_created"
)

// WebhookPayload is one verified webhook event.
type WebhookPayload struct {
	Event     string
	BotID     string
	UserTgID  string
	Timestamp time.Time
	// Data holds the "data" object and any top-level field this package does not know about.
	Data map[string]any
}

type webhookPayloadJSON struct {
	Event     string         `json:"event"`
	BotID     string         `json:"bot_id"`
	UserTgID  string         `json:"user_tg_id"`
	Timestamp string         `json:"timestamp,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// MarshalJSON renders the payload in the wire format accepted by ParseWebhookPayload.
func (p WebhookPayload) MarshalJSON() ([]byte, error) {
	out := webhookPayloadJSON{
		Event:    p.Event,
		BotID:    p.BotID,
		UserTgID: p.UserTgID,
		Data:     p.Data,
	}
	if !p.Timestamp.IsZero() {
		out.Timestamp = p.Timestamp.Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// VerifyAndParse checks the signature of body and only then parses it.
func VerifyAndParse(body []byte, signature, secret string) (*WebhookPayload, error) {
	if !VerifySignature(body, signature, secret) {
		return nil, ErrInvalidSignature
	}
	return ParseWebhookPayload(body)
}

// ParseWebhookPayload decodes body into a WebhookPayload. It does not check the signature;
// use VerifyAndParse unless the body is already trusted.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ParseError{Reason: "empty body"}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &ParseError{Reason: "body is not a JSON object", Err: err}
	}
	if fields == nil {
		return nil, &ParseError{Reason: "body is not a JSON object"}
	}

	payload := &WebhookPayload{}
	var err error
	if payload.Event, err = requiredString(fields, "event"); err != nil {
		return nil, err
	}
	if payload.BotID, err = requiredIdentifier(fields, "bot_id"); err != nil {
		return nil, err
	}
	if payload.UserTgID, err = requiredIdentifier(fields, "user_tg_id"); err != nil {
		return nil, err
	}
	if payload.Timestamp, err = optionalTimestamp(fields, "timestamp"); err != nil {
		return nil, err
	}

	data := map[string]any{}
	if raw, ok := fields["data"]; ok && !isNull(raw) {
		if err = decodeNumbers(raw, &data); err != nil {
			return nil, &ParseError{Field: "data", Reason: "must be an object", Err: err}
		}
		if data == nil {
			data = map[string]any{}
		}
	}
	for key, raw := range fields {
		switch key {
		case "event", "bot_id", "user_tg_id", "timestamp", "data":
			continue
		}
		if _, exists := data[key]; exists {
			continue
		}
		var v any
		if err = decodeNumbers(raw, &v); err != nil {
			return nil, &ParseError{Field: key, Err: err}
		}
		data[key] = v
	}
	if len(data) > 0 {
		payload.Data = data
	}
	return payload, nil
}

func requiredString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", &ParseError{Field: name, Reason: "is required"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &ParseError{Field: name, Reason: "must be a string"}
	}
	if s == "" {
		return "", &ParseError{Field: name, Reason: "is required"}
	}
	return s, nil
}

// requiredIdentifier accepts a JSON string or a JSON integer.
func requiredIdentifier(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", &ParseError{Field: name, Reason: "is required"}
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return requiredString(fields, name)
	}
	var n json.Number
	if err := decodeNumbers(trimmed, &n); err != nil {
		return "", &ParseError{Field: name, Reason: "must be a string or an integer"}
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", &ParseError{Field: name, Reason: "must be a string or an integer"}
	}
	return n.String(), nil
}

// optionalTimestamp accepts an RFC 3339 string or unix seconds.
func optionalTimestamp(fields map[string]json.RawMessage, name string) (time.Time, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return time.Time{}, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return time.Time{}, &ParseError{Field: name, Err: err}
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, &ParseError{Field: name, Reason: "must be RFC 3339", Err: err}
		}
		return t, nil
	}
	var n json.Number
	if err := decodeNumbers(trimmed, &n); err != nil {
		return time.Time{}, &ParseError{Field: name, Reason: "must be a string or unix seconds"}
	}
	secs, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		return time.Time{}, &ParseError{Field: name, Reason: "must be a string or unix seconds", Err: err}
	}
	return time.Unix(secs, 0).UTC(), nil
}

func decodeNumbers(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
