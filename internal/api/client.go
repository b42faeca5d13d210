package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultPort is the daemon's default API port.
	DefaultPort = 8080

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 10 * time.Second
)

// Client is an HTTP client for the daemon's API, used by the operator CLI
// and the monitor TUI.
type Client struct {
	// BaseURL is the daemon's base URL (e.g., "http://10.41.0.1:8080").
	BaseURL string

	// HTTPClient is the underlying HTTP client.
	HTTPClient *http.Client
}

// NewClient creates a client for a daemon at the given host and port.
func NewClient(host string, port int) *Client {
	return NewClientWithURL(fmt.Sprintf("http://%s:%d", host, port))
}

// NewClientWithURL creates a client with a full base URL.
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// SetTimeout sets the HTTP request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// EventsURL returns the websocket URL of the event stream.
func (c *Client) EventsURL() string {
	url := c.BaseURL + "/api/events"
	if strings.HasPrefix(url, "https://") {
		return "wss://" + strings.TrimPrefix(url, "https://")
	}
	return "ws://" + strings.TrimPrefix(url, "http://")
}

// Status retrieves the daemon's current mode status.
func (c *Client) Status() (*StatusResponse, error) {
	var status StatusResponse
	if err := c.get("/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Networks retrieves the visible networks from a fresh scan. Fails with the
// daemon's error while the access point is active, because scanning would
// disrupt hosting.
func (c *Client) Networks() ([]NetworkInfo, error) {
	var resp NetworksResponse
	if err := c.get("/api/networks", &resp); err != nil {
		return nil, err
	}
	return resp.Networks, nil
}

// Connect asks the daemon to configure a network and associate with it.
// The request is accepted asynchronously; watch Status for the outcome.
func (c *Client) Connect(ssid, password string) error {
	return c.post("/api/connect", &ConnectRequest{SSID: ssid, Password: password})
}

// ForceAP asks the daemon to switch to access point mode immediately.
func (c *Client) ForceAP() error {
	return c.post("/api/force-ap", nil)
}

func (c *Client) get(path string, out interface{}) error {
	resp, err := c.HTTPClient.Get(c.BaseURL + path)
	if err != nil {
		return &ClientError{Type: ErrTypeNetwork, Message: "daemon unreachable", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	return c.decode(resp, out)
}

func (c *Client) post(path string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &ClientError{Type: ErrTypeParse, Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	resp, err := c.HTTPClient.Post(c.BaseURL+path, "application/json", reader)
	if err != nil {
		return &ClientError{Type: ErrTypeNetwork, Message: "daemon unreachable", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var ack AcceptedResponse
	return c.decode(resp, &ack)
}

func (c *Client) decode(resp *http.Response, out interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ClientError{Type: ErrTypeNetwork, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		message := fmt.Sprintf("unexpected status code: %d", resp.StatusCode)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return &ClientError{Type: ErrTypeHTTP, Message: message, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ClientError{Type: ErrTypeParse, Message: "failed to parse response", Err: err}
	}
	return nil
}
