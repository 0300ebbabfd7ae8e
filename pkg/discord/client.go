package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dcexport/pkg/config"
	"dcexport/pkg/errors"
	"dcexport/pkg/logger"
)

// maxErrorBodySize bounds how much of an error response body is read
// when looking for a retry_after value or an error message.
const maxErrorBodySize = 4096

// Client is an HTTP client for the Discord REST API
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	pageSize   int
	logger     logger.Logger
}

// NewClient creates a client configured for authenticated message fetching
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	// Use default logger if none provided
	if log == nil {
		log = logger.GetLogger()
	}

	baseURL := cfg.Discord.APIBaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Export.RequestTimeout,
		},
		headers: map[string]string{
			"Authorization":   cfg.Discord.Token,
			"User-Agent":      cfg.Discord.UserAgent,
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
		},
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: cfg.Export.PageSize,
		logger:   log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// BaseURL returns the API base URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	// Set all headers
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// Get performs a GET request to the specified URL
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}

	return c.doRequest(req)
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Check status code
	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	// Decode JSON
	if err := json.Unmarshal(body, target); err != nil {
		// Create a preview of the body for debugging
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errors.Error{
			Type:    errors.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus checks the HTTP response status and returns appropriate errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		c.logger.WarnWithFields("authentication rejected", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		message := "authentication required"
		if resp.StatusCode == http.StatusForbidden {
			message = "access to this channel is forbidden"
		}
		return &errors.Error{
			Type:    errors.ErrorTypeAuth,
			Message: message,
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := c.parseRetryAfter(resp)
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status":      resp.StatusCode,
			"url":         resp.Request.URL.String(),
			"retry_after": retryAfter,
		})
		return &errors.Error{
			Type:       errors.ErrorTypeRateLimit,
			Message:    "rate limit exceeded",
			Code:       resp.StatusCode,
			RetryAfter: retryAfter,
		}
	case resp.StatusCode >= 500:
		c.logger.ErrorWithFields("server error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeServerError,
			Message: "server error",
			Code:    resp.StatusCode,
		}
	case resp.StatusCode >= 400:
		c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	default:
		return nil
	}
}

// parseRetryAfter extracts the server-requested wait from a 429 response.
// The Retry-After header takes precedence, the retry_after field of the
// JSON body is the fallback. Zero means the server gave no wait.
func (c *Client) parseRetryAfter(resp *http.Response) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.ParseFloat(header, 64); err == nil && seconds > 0 {
			return time.Duration(seconds * float64(time.Second))
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return 0
	}

	var rateLimited rateLimitBody
	if err := json.Unmarshal(body, &rateLimited); err != nil {
		return 0
	}
	if rateLimited.RetryAfter > 0 {
		return time.Duration(rateLimited.RetryAfter * float64(time.Second))
	}

	return 0
}

// FetchChannel fetches channel metadata. Used as a pre-flight check so
// bad credentials or a wrong channel ID surface before the export starts.
func (c *Client) FetchChannel(ctx context.Context, channelID string) (*Channel, error) {
	url := ChannelURL(c.baseURL, channelID)

	c.logger.DebugWithFields("fetching channel metadata", map[string]interface{}{
		"channel_id": channelID,
		"url":        url,
	})

	var channel Channel
	if err := c.GetJSON(ctx, url, &channel); err != nil {
		c.logger.ErrorWithFields("failed to fetch channel metadata", map[string]interface{}{
			"channel_id": channelID,
			"error":      err.Error(),
		})
		return nil, err
	}

	return &channel, nil
}

// FetchMessages fetches one page of messages older than the before cursor.
// An empty cursor fetches the newest page. An empty result means the
// channel history is exhausted.
func (c *Client) FetchMessages(ctx context.Context, channelID, before string) ([]Message, error) {
	url := MessagesURL(c.baseURL, channelID, before, c.pageSize)

	c.logger.DebugWithFields("fetching messages", map[string]interface{}{
		"channel_id": channelID,
		"before":     before,
		"url":        url,
	})

	var messages []Message
	if err := c.GetJSON(ctx, url, &messages); err != nil {
		c.logger.ErrorWithFields("failed to fetch messages", map[string]interface{}{
			"channel_id": channelID,
			"before":     before,
			"error":      err.Error(),
		})
		return nil, err
	}

	c.logger.DebugWithFields("fetched message page", map[string]interface{}{
		"channel_id": channelID,
		"count":      len(messages),
	})

	return messages, nil
}
