package opensubtitles

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"
)

// API politeness limits. OpenSubtitles meters requests per consumer, so
// calls are spaced out and rate-limit responses back off hard before the
// next attempt.
const (
	minInterval    = time.Second
	maxRateRetries = 6
	initialBackoff = 2 * time.Second
	maxBackoff     = 60 * time.Second
)

// retriableStatus reports whether a response status is worth retrying: the
// rate limit itself, request timeouts, and upstream gateway failures.
func retriableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retriableErr reports whether a transport error is transient. Cancellation
// is never retried; per-request timeouts are.
func retriableErr(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// retryDelay picks the wait before the next attempt, honoring a Retry-After
// header when the server sent a usable one.
func retryDelay(resp *http.Response, fallback time.Duration) time.Duration {
	if after := resp.Header.Get("Retry-After"); after != "" {
		if secs, err := strconv.Atoi(after); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// nextBackoff doubles the delay up to the cap.
func nextBackoff(current time.Duration) time.Duration {
	if next := current * 2; next < maxBackoff {
		return next
	}
	return maxBackoff
}

// sleepWithContext blocks for d, returning early when ctx ends.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
