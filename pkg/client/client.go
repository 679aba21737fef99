// Package client is a Go client for the pyazgate HTTP API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Detail)
}

// Client talks to a gateway at BaseURL.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}
}

// Get returns the value stored under key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	var resp struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	err := c.do(ctx, http.MethodGet, "/get/"+url.PathEscape(key), &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return "", err
	}
	return resp.Value, nil
}

// Set stores value under key and returns the gateway's confirmation.
func (c *Client) Set(ctx context.Context, key, value string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	path := "/set/" + url.PathEscape(key) + "/" + url.PathEscape(value)
	if err := c.do(ctx, http.MethodPost, path, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// GetAll returns every key with its value.
func (c *Client) GetAll(ctx context.Context) (map[string]string, error) {
	var resp struct {
		KeysValues map[string]string `json:"keys_values"`
	}
	if err := c.do(ctx, http.MethodGet, "/get-all", &resp); err != nil {
		return nil, err
	}
	return resp.KeysValues, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &e) != nil || e.Detail == "" {
			e.Detail = strings.TrimSpace(string(body))
		}
		return &APIError{StatusCode: resp.StatusCode, Detail: e.Detail}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
