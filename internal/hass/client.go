// Package hass is a minimal Home Assistant REST client for the light.turn_on
// service.
package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dokzlo13/deckcolor/internal/color"
)

// TurnOnPath is the service endpoint, relative to the instance base URL.
const TurnOnPath = "/api/services/light/turn_on"

// DispatchError is the failure of one light's request.
type DispatchError struct {
	EntityID   string
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *DispatchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to turn on %s: status %d: %s", e.EntityID, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("failed to turn on %s: %v", e.EntityID, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// TurnOnRequest is the JSON body of light.turn_on.
type TurnOnRequest struct {
	EntityID string    `json:"entity_id"`
	RGBColor color.RGB `json:"rgb_color"`
}

// Client talks to one Home Assistant instance.
// Requests share a rate limiter so a burst of presses cannot flood the API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client. rateLimitRPS <= 0 disables rate limiting.
func NewClient(baseURL, token string, httpClient *http.Client, rateLimitRPS float64) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	var limiter *rate.Limiter
	if rateLimitRPS > 0 {
		burst := int(rateLimitRPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rateLimitRPS), burst)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// BaseURL returns the instance URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close closes idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Request performs an authenticated HTTP request against the instance.
func (c *Client) Request(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// TurnOn sets one light to the given color. Any non-2xx status is an error.
// The response body is ignored on success.
func (c *Client) TurnOn(ctx context.Context, entityID string, rgb color.RGB) error {
	payload, err := json.Marshal(TurnOnRequest{EntityID: entityID, RGBColor: rgb})
	if err != nil {
		return &DispatchError{EntityID: entityID, Err: err}
	}

	resp, err := c.Request(ctx, http.MethodPost, TurnOnPath, bytes.NewReader(payload))
	if err != nil {
		return &DispatchError{EntityID: entityID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &DispatchError{
			EntityID:   entityID,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
