package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-opus-20240229"

	// Fixed sampling configuration used for every relay request.
	DefaultMaxTokens   = 1048
	DefaultTemperature = 0.7

	defaultAPIVersion = "2023-06-01"
)

// Client represents the Claude Messages API client.
type Client struct {
	httpClient *http.Client
	APIKey     string
	BaseURL    string
	APIVersion string
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.BaseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithAPIVersion(version string) ClientOption {
	return func(c *Client) {
		c.APIVersion = version
	}
}

// NewClient initializes and returns a new API client.
func NewClient(apiKey string, options ...ClientOption) *Client {
	ret := &Client{
		httpClient: &http.Client{},
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		APIVersion: defaultAPIVersion,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("anthropic-version", c.APIVersion)
	// The relay originally ran inside a browser context; the API requires this
	// flag for requests carrying the key from a browser origin.
	req.Header.Set("anthropic-dangerous-direct-browser-access", "true")
}

// SendMessage sends a message request and returns the response. Non-2xx
// responses are decoded as {error:{message}} and surfaced as plain errors
// carrying the API's message text.
func (c *Client) SendMessage(ctx context.Context, req *MessageRequest) (*MessageResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/messages", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &errorResp); unmarshalErr != nil || errorResp.Error.Message == "" {
			return nil, errors.Errorf("API request failed with status %d", resp.StatusCode)
		}
		return nil, errors.New(errorResp.Error.Message)
	}

	var messageResp MessageResponse
	if unmarshalErr := json.Unmarshal(respBody, &messageResp); unmarshalErr != nil {
		return nil, unmarshalErr
	}

	return &messageResp, nil
}
