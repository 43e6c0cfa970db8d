package devserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultClientTimeout bounds each request a Client makes.
const DefaultClientTimeout = 5 * time.Second

// Info is the dev server state reported by the status and reload endpoints.
type Info struct {
	Status   Status `json:"status"`
	Reloads  int    `json:"reloads"`
	Clients  int    `json:"clients"`
	Notified int    `json:"notified,omitempty"`
}

// Client talks to a running dev server over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
//
// Parameters:
//   - baseURL: The source server URL, e.g. http://127.0.0.1:8324
//
// Returns:
//   - *Client: A new client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultClientTimeout},
	}
}

// BaseURL returns the server URL the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Reload asks the server to broadcast a reload.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - *Info: Server state after the broadcast, with Notified set
//   - error: If the server is unreachable or rejects the request
func (c *Client) Reload(ctx context.Context) (*Info, error) {
	body, err := c.do(ctx, http.MethodPost, ReloadPath, "")
	if err != nil {
		return nil, err
	}
	return parseInfo(body), nil
}

// Status fetches the server state.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - *Info: Current server state
//   - error: If the server is unreachable
func (c *Client) Status(ctx context.Context) (*Info, error) {
	body, err := c.do(ctx, http.MethodGet, StatusPath, "")
	if err != nil {
		return nil, err
	}
	return parseInfo(body), nil
}

// Source fetches a file the way an app would.
//
// Parameters:
//   - ctx: Context for cancellation
//   - rel: Path relative to the resources directory
//   - platform: Platform override directory, or ""
//
// Returns:
//   - []byte: File contents
//   - error: If the file does not exist or the server is unreachable
func (c *Client) Source(ctx context.Context, rel, platform string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/"+strings.TrimLeft(rel, "/"), platform)
}

func (c *Client) do(ctx context.Context, method, path, platform string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if platform != "" {
		req.Header.Set(PlatformHeader, platform)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dev server at %s is not reachable: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return body, nil
}

func parseInfo(body []byte) *Info {
	result := gjson.ParseBytes(body)
	return &Info{
		Status:   Status(result.Get("status").String()),
		Reloads:  int(result.Get("reloads").Int()),
		Clients:  int(result.Get("clients").Int()),
		Notified: int(result.Get("notified").Int()),
	}
}
