// Package roku implements a client for the Roku External Control Protocol.
package roku

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ECPPort is the fixed port Roku devices listen on for ECP requests.
const ECPPort = 8060

// DeviceInfo holds the subset of /query/device-info we use.
type DeviceInfo struct {
	Model string `json:"model"`
}

// LaunchResult reports the outcome of a launch request. A transport failure
// leaves StatusCode zero; an HTTP failure records the device's status code.
type LaunchResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
}

// Client talks to a single Roku device over ECP.
type Client struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.client = h }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client for the device at ip.
func New(ip string, opts ...Option) *Client {
	c := &Client{
		baseURL: fmt.Sprintf("http://%s:%d", ip, ECPPort),
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewWithBaseURL creates a Client against an explicit base URL. Intended for
// tests.
func NewWithBaseURL(baseURL string, opts ...Option) *Client {
	c := New("0.0.0.0", opts...)
	c.baseURL = baseURL
	return c
}

// BaseURL returns the device's ECP base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DeviceInfo queries /query/device-info.
func (c *Client) DeviceInfo(ctx context.Context) (DeviceInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query/device-info", nil)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("roku: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("roku: device info: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return DeviceInfo{}, fmt.Errorf("roku: device returned status %d", resp.StatusCode)
	}

	var info DeviceInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return DeviceInfo{}, fmt.Errorf("roku: decode device info: %w", err)
	}

	return info, nil
}

// Launch deep-links into a channel via POST /launch/{channelID}. The result
// distinguishes a connection failure from a non-200 device response.
func (c *Client) Launch(ctx context.Context, channelID int, contentID, mediaType string) LaunchResult {
	params := url.Values{}
	params.Set("contentId", contentID)
	params.Set("mediaType", mediaType)

	launchURL := fmt.Sprintf("%s/launch/%d?%s", c.baseURL, channelID, params.Encode())
	c.log.Info("launching roku channel", "channel_id", channelID, "content_id", contentID, "media_type", mediaType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, launchURL, nil)
	if err != nil {
		return LaunchResult{Success: false, Message: fmt.Sprintf("Roku connection failed: %v", err)}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return LaunchResult{Success: false, Message: fmt.Sprintf("Roku connection failed: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return LaunchResult{
			Success:    false,
			Message:    fmt.Sprintf("Roku returned status %d.", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	return LaunchResult{
		Success:    true,
		Message:    fmt.Sprintf("Launched channel %d with content ID %s.", channelID, contentID),
		StatusCode: http.StatusOK,
	}
}

// Keypress presses a remote key via POST /keypress/{key}.
func (c *Client) Keypress(ctx context.Context, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/keypress/"+url.PathEscape(key), nil)
	if err != nil {
		return fmt.Errorf("roku: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("roku: keypress %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("roku: keypress %s: device returned status %d", key, resp.StatusCode)
	}

	return nil
}
