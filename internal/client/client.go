// Package client is a small HTTP client for the prediction service.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"income-predictor/internal/features"
)

type Client struct {
	base string
	rest *resty.Client
}

// Prediction mirrors the /predict success body.
type Prediction struct {
	Prediction  int     `json:"prediction"`
	Probability float64 `json:"probability"`
}

// Health mirrors the /health body.
type Health struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version"`
}

type errorResp struct {
	Error string `json:"error"`
}

// APIError is returned for any non-200 response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prediction service: status %d: %s", e.StatusCode, e.Message)
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	r.SetHeader("Content-Type", "application/json")
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Predict posts one record to /predict.
func (c *Client) Predict(ctx context.Context, in features.Input) (Prediction, error) {
	return c.PredictRaw(ctx, in)
}

// PredictRaw posts an arbitrary body, for callers that need to send keys
// outside the Input schema.
func (c *Client) PredictRaw(ctx context.Context, body any) (Prediction, error) {
	var out Prediction
	var apiErr errorResp
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(c.base + "/predict")
	if err != nil {
		return Prediction{}, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		msg := apiErr.Error
		if msg == "" {
			msg = resp.String()
		}
		return Prediction{}, &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return out, nil
}

// Health calls /health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.base + "/health")
	if err != nil {
		return Health{}, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return Health{}, &APIError{StatusCode: resp.StatusCode(), Message: resp.String()}
	}
	return out, nil
}
