// Package publisher schedules posts through a social-scheduling API and
// owns the post row lifecycle around it.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/emitto/internal/httpclient"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second)
	DefaultRateLimit = 1
)

// Client is a social-scheduling API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a scheduling API client authenticating with the given
// access token
func NewClient(baseURL, accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: httpclient.NewBearerHTTPClient(accessToken, DefaultTimeout),
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an error from the scheduling API
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scheduling API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// HTTPStatus lets the retry layer classify the error by status code
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// CreatePostRequest is the payload for scheduling a post
type CreatePostRequest struct {
	Platform    string    `json:"platform"`
	Caption     string    `json:"caption"`
	Hashtags    []string  `json:"hashtags,omitempty"`
	MediaID     string    `json:"media_id,omitempty"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// CreatePostResponse is the scheduling API's answer to a create request
type CreatePostResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// UploadedMedia describes an uploaded media asset
type UploadedMedia struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreatePost schedules a post and returns the API's post identifier
func (c *Client) CreatePost(ctx context.Context, request *CreatePostRequest) (*CreatePostResponse, error) {
	var result CreatePostResponse
	if err := c.postJSON(ctx, "/v1/posts", request, &result); err != nil {
		return nil, err
	}
	if result.ID == "" {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    "response missing post id",
			Endpoint:   "/v1/posts",
		}
	}
	return &result, nil
}

// DeletePost cancels a scheduled post
func (c *Client) DeletePost(ctx context.Context, externalID string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	endpoint := "/v1/posts/" + externalID
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.errorFromResponse(resp, endpoint)
	}
	return nil
}

// UploadMedia uploads image bytes and returns the media handle to reference
// in a post
func (c *Client) UploadMedia(ctx context.Context, filename string, data []byte) (*UploadedMedia, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	endpoint := "/v1/media"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.errorFromResponse(resp, endpoint)
	}

	var media UploadedMedia
	if err := json.NewDecoder(resp.Body).Decode(&media); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	if media.ID == "" {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    "response missing media id",
			Endpoint:   endpoint,
		}
	}
	return &media, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.errorFromResponse(resp, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) errorFromResponse(resp *http.Response, endpoint string) error {
	message := fmt.Sprintf("unexpected status %d", resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(body) > 0 {
		var apiMsg struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiMsg) == nil {
			if apiMsg.Error != "" {
				message = apiMsg.Error
			} else if apiMsg.Message != "" {
				message = apiMsg.Message
			}
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Endpoint:   endpoint,
	}
}
