package handler

// NoWebhookSecretError is returned when a handler is built without a signing secret.
type NoWebhookSecretError struct{}

func (m *NoWebhookSecretError) Error() string {
	return "no webhook secret configured"
}

// HandlerFailedError wraps an error returned by the EventHandler.
type HandlerFailedError struct {
	Event string
	Err   error
}

func (e *HandlerFailedError) Error() string {
	return "handling " + e.Event + " event: " + e.Err.Error()
}

func (e *HandlerFailedError) Unwrap() error {
	return e.Err
}
