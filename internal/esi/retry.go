package esi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nerevar/corpsync/internal/domain"
)

// transientStatus reports whether the status code conventionally means
// "try again later". Everything else, notably 404, is terminal.
func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RetryTransport wraps a Getter with a bounded fixed-delay retry policy.
// Only transient statuses are retried; transport-level failures (DNS,
// connection refused) surface immediately.
type RetryTransport struct {
	next    Getter
	retries int
	delay   time.Duration
}

func NewRetryTransport(next Getter, retries int, delay time.Duration) *RetryTransport {
	if retries < 0 {
		retries = 0
	}
	return &RetryTransport{
		next:    next,
		retries: retries,
		delay:   delay,
	}
}

func (r *RetryTransport) Get(ctx context.Context, path string) ([]byte, error) {
	attempts := r.retries + 1
	lastStatus := 0

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.delay):
			}
		}

		body, err := r.next.Get(ctx, path)
		if err == nil {
			return body, nil
		}

		var statusErr *StatusError
		if !errors.As(err, &statusErr) || !transientStatus(statusErr.Code) {
			return nil, err
		}
		lastStatus = statusErr.Code
	}

	return nil, domain.RetryExhaustedError{
		Operation:  "GET " + path,
		Attempts:   attempts,
		LastStatus: lastStatus,
	}
}
