// Package graphql provides a minimal GraphQL-over-HTTP client for subgraph endpoints.
//
// Queries are sent as a JSON body ({"query": ..., "variables": ...}) via HTTP POST.
// A response is accepted only when the status is 2xx, the body is valid JSON and the
// "errors" list is empty; the "data" object is then handed back as raw JSON for the
// caller to decode into its own shape.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every HTTP round-trip when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Request is the JSON envelope POSTed to the endpoint.
type Request struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

// Response is the JSON envelope returned by the endpoint.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []ErrorMessage  `json:"errors,omitempty"`
}

// ErrorMessage is a single entry of the "errors" list.
type ErrorMessage struct {
	Message string `json:"message"`
}

// Error is returned when the endpoint answered with a non-empty "errors" list.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}

// Client posts GraphQL queries to a single endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a client for url. A non-positive timeout falls back to DefaultTimeout.
func NewClient(url string, timeout time.Duration, maxRetries int) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Client{
		url:        strings.TrimRight(url, "/"),
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the endpoint this client talks to.
func (c *Client) URL() string { return c.url }

// Query executes query with variables and decodes the "data" object into out.
// Transport failures are retried with exponential backoff; GraphQL errors are not.
func (c *Client) Query(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	if variables == nil {
		variables = map[string]interface{}{}
	}

	body, err := json.Marshal(Request{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	var resp *Response
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, lastErr = c.doRequest(ctx, body)
		if lastErr == nil {
			break
		}

		// Exponential backoff: 100ms, 200ms, 400ms...
		if attempt < c.maxRetries {
			backoff := time.Duration(1<<attempt) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	if lastErr != nil {
		if c.maxRetries == 0 {
			return lastErr
		}
		return fmt.Errorf("failed after %d attempts: %w", c.maxRetries+1, lastErr)
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return &Error{Messages: msgs}
	}

	if out == nil || len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("invalid data payload: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, body []byte) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", httpResp.StatusCode)
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	return &resp, nil
}
