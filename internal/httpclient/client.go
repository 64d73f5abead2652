package httpclient

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// NewBearerHTTPClient creates an HTTP client that attaches a static bearer
// token to every request
func NewBearerHTTPClient(token string, timeout time.Duration) *http.Client {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := oauth2.NewClient(context.Background(), source)
	client.Timeout = timeout
	return client
}
