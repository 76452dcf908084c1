// Package predictor is the HTTP client for the remote prediction service.
//
// The service accepts a JSON object mapping every schema key to a number and
// answers with {"failure_type": string, "predicted_rul": number}.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/rulcast/internal/domain/form"
	model "github.com/okian/rulcast/internal/domain/model"
	"github.com/okian/rulcast/pkg/logger"
)

const (
	maxResponseBytes = 1 << 20
	maxErrorBodyLen  = 256
	requestIDHeader  = "X-Request-ID"
)

// Client posts readings to the prediction endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	logger   logger.Logger
}

// New creates a client for endpoint.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{},
		logger:   logger.Get().Named("predictor"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Predict performs one request/response exchange. Failures are *ServiceError
// or *MalformedResponseError.
func (c *Client) Predict(ctx context.Context, requestID string, payload map[string]float64) (model.PredictionResult, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return model.PredictionResult{}, &ServiceError{Err: fmt.Errorf("encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return model.PredictionResult{}, &ServiceError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return model.PredictionResult{}, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return model.PredictionResult{}, &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail error
		if msg := strings.TrimSpace(string(raw)); msg != "" {
			if len(msg) > maxErrorBodyLen {
				msg = msg[:maxErrorBodyLen]
			}
			detail = fmt.Errorf("%s", msg)
		}
		return model.PredictionResult{}, &ServiceError{StatusCode: resp.StatusCode, Err: detail}
	}

	res, err := Decode(raw)
	if err != nil {
		c.logger.Warn(ctx, "malformed prediction response",
			logger.String("request_id", requestID),
			logger.Int("status", resp.StatusCode),
			logger.Int("body_bytes", len(raw)),
			logger.Error(err),
		)
		return model.PredictionResult{}, err
	}
	return res, nil
}

// Decode parses a success body. Missing or null fields, a non-string
// failure_type or a non-numeric predicted_rul yield *MalformedResponseError.
// predicted_rul may also be a numeric string.
func Decode(raw []byte) (model.PredictionResult, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return model.PredictionResult{}, &MalformedResponseError{Reason: "body is not a JSON object"}
	}

	ft, ok := fields["failure_type"]
	if !ok || isNull(ft) {
		return model.PredictionResult{}, &MalformedResponseError{Reason: "failure_type missing"}
	}
	var failureType string
	if err := json.Unmarshal(ft, &failureType); err != nil {
		return model.PredictionResult{}, &MalformedResponseError{Reason: "failure_type is not a string"}
	}

	rv, ok := fields["predicted_rul"]
	if !ok || isNull(rv) {
		return model.PredictionResult{}, &MalformedResponseError{Reason: "predicted_rul missing"}
	}
	rul, err := parseRUL(rv)
	if err != nil {
		return model.PredictionResult{}, &MalformedResponseError{Reason: err.Error()}
	}

	return model.PredictionResult{FailureType: failureType, PredictedRUL: rul}, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func parseRUL(raw json.RawMessage) (float64, error) {
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("predicted_rul is not a number")
		}
		num = json.Number(strings.TrimSpace(s))
	}
	v, err := form.ParseNumber(num.String())
	if err != nil {
		return 0, fmt.Errorf("predicted_rul is not a finite number: %w", err)
	}
	return v, nil
}
