// Package client provides the Meta, Snap and TikTok conversions API clients
// implementing the platform write and read ports.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/allisson/conversions/internal/errors"
)

// Config holds shared platform client settings.
type Config struct {
	// Timeout bounds each individual HTTP call.
	Timeout time.Duration
	// MaxAttempts bounds transport-level retries per send. These retries are
	// independent from the outbox retry count, which tracks publish cycles.
	MaxAttempts int
	// BaseDelay is the initial backoff delay; it doubles per attempt.
	BaseDelay time.Duration
}

// DefaultConfig returns the recommended client settings: 30s timeout, 3
// attempts, 1s base delay with doubling.
func DefaultConfig() Config {
	return Config{
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// apiError is a non-2xx platform response. Status 429 and 5xx are retryable.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("platform api error: status=%d body=%s", e.StatusCode, e.Body)
}

// retryable reports whether the response status warrants a transport retry.
func (e *apiError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// transport wraps an http.Client with bounded exponential backoff.
type transport struct {
	client *http.Client
	config Config
	logger *slog.Logger
}

// newTransport builds a transport from the config, filling in defaults.
func newTransport(config Config, logger *slog.Logger) *transport {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	return &transport{
		client: &http.Client{Timeout: config.Timeout},
		config: config,
		logger: logger,
	}
}

// doJSON performs one HTTP exchange with retries and decodes the JSON response.
func (t *transport) doJSON(
	ctx context.Context,
	method, url string,
	headers map[string]string,
	body any,
) (map[string]any, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = t.config.BaseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	var result map[string]any
	operation := func() error {
		response, err := t.attempt(ctx, method, url, headers, bodyBytes)
		if err != nil {
			var apiErr *apiError
			if errors.As(err, &apiErr) && !apiErr.retryable() {
				return backoff.Permanent(err)
			}
			return err
		}
		result = response
		return nil
	}

	err := backoff.Retry(
		operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(t.config.MaxAttempts-1)), ctx),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// attempt performs a single HTTP exchange.
func (t *transport) attempt(
	ctx context.Context,
	method, url string,
	headers map[string]string,
	bodyBytes []byte,
) (map[string]any, error) {
	var reader io.Reader
	if bodyBytes != nil {
		reader = bytes.NewReader(bodyBytes)
	}

	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if bodyBytes != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		request.Header.Set(key, value)
	}

	response, err := t.client.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close() //nolint:errcheck

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		if t.logger != nil {
			t.logger.Warn("platform api request failed",
				slog.String("url", url),
				slog.Int("status", response.StatusCode),
			)
		}
		return nil, &apiError{StatusCode: response.StatusCode, Body: string(responseBody)}
	}

	result := map[string]any{}
	if len(responseBody) > 0 {
		if err := json.Unmarshal(responseBody, &result); err != nil {
			return nil, errors.Wrap(err, "failed to decode response body")
		}
	}
	return result, nil
}

// stringField extracts a string field from a decoded JSON object.
func stringField(object map[string]any, key string) string {
	if value, ok := object[key].(string); ok {
		return value
	}
	return ""
}

// floatField extracts a numeric field from a decoded JSON object, tolerating
// platforms that serialize numbers as strings.
func floatField(object map[string]any, key string) float64 {
	switch value := object[key].(type) {
	case float64:
		return value
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// objectList extracts a list of JSON objects from a field.
func objectList(payload map[string]any, key string) []map[string]any {
	raw, ok := payload[key].([]any)
	if !ok {
		return nil
	}
	objects := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if object, ok := item.(map[string]any); ok {
			objects = append(objects, object)
		}
	}
	return objects
}
