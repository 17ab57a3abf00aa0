// internal/api/client.go
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to a running tracker server, e.g. from the command line.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Error is a non-2xx answer from the server.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Healthcheck checks if the tracker server is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/api/healthz")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Status returns the server's status report.
func (c *Client) Status() (json.RawMessage, error) {
	return c.do(http.MethodGet, "/api/status", nil, "")
}

// List returns the turn order as the server renders it.
func (c *Client) List() (json.RawMessage, error) {
	return c.do(http.MethodGet, "/api/combatants", nil, "")
}

// Add creates a combatant from an add block.
func (c *Client) Add(block string) (json.RawMessage, error) {
	return c.do(http.MethodPost, "/api/combatants", strings.NewReader(block), "text/plain")
}

// Remove deletes a combatant.
func (c *Client) Remove(id string) (json.RawMessage, error) {
	return c.do(http.MethodDelete, "/api/combatants/"+url.PathEscape(id), nil, "")
}

// Action runs a per-combatant action such as "hit" or "fire".
func (c *Client) Action(id, action string, args ...string) (json.RawMessage, error) {
	var body io.Reader
	if len(args) > 0 {
		b, err := json.Marshal(argsBody{Args: args})
		if err != nil {
			return nil, fmt.Errorf("failed to encode args: %w", err)
		}
		body = bytes.NewReader(b)
	}
	path := "/api/combatants/" + url.PathEscape(id) + "/" + url.PathEscape(action)
	return c.do(http.MethodPost, path, body, "application/json")
}

// Turn passes the turn forward, or back when next is false.
func (c *Client) Turn(next bool) (json.RawMessage, error) {
	path := "/api/turn/next"
	if !next {
		path = "/api/turn/prev"
	}
	return c.do(http.MethodPost, path, nil, "")
}

func (c *Client) do(method, path string, body io.Reader, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" && body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		apiErr.Status = resp.StatusCode
		return nil, apiErr
	}
	return json.RawMessage(data), nil
}
