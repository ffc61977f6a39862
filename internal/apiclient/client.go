// Package apiclient talks to the coop controller HTTP API polled by the dashboard.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"kandang-monitor/internal/types"
)

// ErrUnexpectedStatus is wrapped by every error caused by a non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client is a controller API client.
type Client struct {
	baseURL string
	http    *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.SetTimeout(timeout)
	}
}

// WithHTTPClient swaps the underlying transport client, keeping the base URL.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = newResty(resty.NewWithClient(hc), c.baseURL)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    newResty(resty.New(), baseURL).SetTimeout(10 * time.Second),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newResty(r *resty.Client, baseURL string) *resty.Client {
	return r.SetBaseURL(baseURL).SetHeader("Accept", "application/json")
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchTemperature calls GET /api/temp.
func (c *Client) FetchTemperature(ctx context.Context) (types.Snapshot, error) {
	var out types.Snapshot
	err := c.getJSON(ctx, "/api/temp", &out)
	return out, err
}

// FetchHistory calls GET /api/temp-history.
func (c *Client) FetchHistory(ctx context.Context) (types.HistorySeries, error) {
	var out types.HistorySeries
	err := c.getJSON(ctx, "/api/temp-history", &out)
	return out, err
}

// FetchCoop calls GET /api/kandang. Arrays are summed per field.
func (c *Client) FetchCoop(ctx context.Context) (types.CoopTally, error) {
	body, err := c.get(ctx, "/api/kandang")
	if err != nil {
		return types.CoopTally{}, err
	}
	return types.ParseCoopTally(body)
}

// FetchDeviceStatus calls GET /api/{device}/status.
func (c *Client) FetchDeviceStatus(ctx context.Context, device string) (types.DeviceStatus, error) {
	var out types.DeviceStatus
	err := c.getJSON(ctx, "/api/"+device+"/status", &out)
	return out, err
}

// SetDevice calls POST /api/{device} with {"action": action}. The response
// body is not used.
func (c *Client) SetDevice(ctx context.Context, device, action string) error {
	path := "/api/" + device
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(types.DeviceCommand{Action: action}).
		Post(path)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	return checkStatus(http.MethodPost, path, resp)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if err := checkStatus(http.MethodGet, path, resp); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func checkStatus(method, path string, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}
	return fmt.Errorf("%s %s: %w %d: %s", method, path, ErrUnexpectedStatus, resp.StatusCode(), truncate(resp.String(), 200))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
