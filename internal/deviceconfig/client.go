package deviceconfig

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second
)

// Client talks to the local HTTP API of an APTL device
type Client struct {
	// BaseURL is the base URL for the device (e.g., "http://192.168.4.1:80")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles RetryDelay after every failed attempt
	UseExponentialBackoff bool
}

// NewClient creates a client for the device at host:port
func NewClient(host string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(host, strconv.Itoa(port)))
}

// NewClientWithURL creates a new client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// withRetry runs attempt until it succeeds, fails with a non-retryable
// error, or MaxRetries is exhausted.
func (c *Client) withRetry(attempt func() error) error {
	var lastErr error
	delay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			time.Sleep(delay)
			if c.UseExponentialBackoff {
				delay *= 2
				if delay > c.MaxRetryDelay {
					delay = c.MaxRetryDelay
				}
			}
		}

		err := attempt()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}
	}
	return lastErr
}

// get performs one GET and returns the body of a 200 response.
func (c *Client) get(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, NewNetworkError("failed to create GET request", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := NewNetworkError("GET "+path+" failed", err)
		devErr.DeviceAddr = req.URL.Host
		return nil, devErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}
	return body, nil
}

// Ping performs a simple health check on the device
func (c *Client) Ping() error {
	_, err := c.get("/api/status")
	return err
}

// GetStatus retrieves the device status snapshot
func (c *Client) GetStatus() (*DeviceStatus, error) {
	var status *DeviceStatus
	err := c.withRetry(func() error {
		body, err := c.get("/api/status")
		if err != nil {
			return err
		}
		status, err = ParseDeviceStatus(body)
		if err != nil {
			return NewParseError("failed to parse status response", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return status, nil
}

// GetNetworks retrieves the networks the device can see
func (c *Client) GetNetworks() ([]Network, error) {
	var networks []Network
	err := c.withRetry(func() error {
		body, err := c.get("/api/networks")
		if err != nil {
			return err
		}
		var resp struct {
			Networks []Network `json:"networks"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return NewParseError("failed to parse networks response", err)
		}
		networks = resp.Networks
		return nil
	})
	return networks, err
}

// Provision submits new Wi-Fi credentials. The device saves them and
// restarts, so the request is not retried once it has been answered.
func (c *Client) Provision(creds *WiFiCredentials) error {
	if errs := ValidateWiFiCredentials(creds); len(errs) > 0 {
		return errs[0]
	}
	return c.withRetry(func() error {
		_, err := c.get("/save?" + creds.ToQuery().Encode())
		return err
	})
}
