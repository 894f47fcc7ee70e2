package aiclient

import (
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// New builds a hosted API client. An empty baseURL keeps the library default.
func New(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}

// UpstreamError marks a failure reported by a hosted API so callers can
// surface the service's own message.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	return e.Service + ": " + e.Message
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Wrap converts go-openai errors into an UpstreamError carrying the hosted
// message. Other errors are wrapped with the service name only.
func Wrap(service string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamError{
			Service:    service,
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Err:        err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamError{
			Service:    service,
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Err:        err,
		}
	}

	return &UpstreamError{Service: service, Message: err.Error(), Err: err}
}
