package crawl

import (
	"context"
	"time"
)

// FetchFunc is the signature for a fetch function.
type FetchFunc func(ctx context.Context, url string) (string, error)

// DefaultRetryDelays returns the backoff delays for fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// FetchWithRetryDelays attempts a fetch with exponential backoff retries.
// One initial attempt plus one retry per delay. A canceled context aborts
// between attempts, never mid-request.
func FetchWithRetryDelays(ctx context.Context, url string, fetch FetchFunc, delays []time.Duration) (string, error) {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		body, err := fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return "", lastErr
}
