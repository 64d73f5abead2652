package retry

import (
	"context"
	"errors"
	"net"
	"strings"
)

// transientPatterns are error message fragments considered retryable
var transientPatterns = []string{
	"network",
	"timeout",
	"rate limit",
	"502",
	"503",
	"504",
	"connection",
	"temporary",
}

// retryableStatusCodes are the HTTP statuses worth retrying: request timeout,
// rate limiting and server-side failures
var retryableStatusCodes = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// httpStatusError is implemented by the typed API errors so their status code
// decides retryability instead of message matching
type httpStatusError interface {
	HTTPStatus() int
}

// IsTransient reports whether an error looks retryable: timeouts, connection
// errors, rate limits and 5xx gateway responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr httpStatusError
	if errors.As(err, &statusErr) {
		return retryableStatusCodes[statusErr.HTTPStatus()]
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
