package slack

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

// maxRetries bounds withRetry for calls outside the reply fetch, which has
// its own single-retry policy.
const maxRetries = 3

// cookieTransport wraps an http.RoundTripper to add cookie headers
type cookieTransport struct {
	transport http.RoundTripper
	cookie    string
	logger    *zap.Logger
}

func (t *cookieTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Cookie", "d="+t.cookie)
	resp, err := t.transport.RoundTrip(req)
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		t.logger.Debug("Slack API rate limit response",
			zap.String("path", req.URL.Path),
			zap.String("retry_after", resp.Header.Get("Retry-After")))
	}
	return resp, err
}

// newCookieTransport creates a transport with cookie authentication
func newCookieTransport(cookie string, logger *zap.Logger) *cookieTransport {
	return &cookieTransport{
		transport: http.DefaultTransport,
		cookie:    cookie,
		logger:    logger,
	}
}

// withRetry calls fn and retries it after the Retry-After delay whenever
// Slack answers with a rate limit, up to maxRetries times.
func withRetry(ctx context.Context, logger *zap.Logger, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		var rateLimitErr *slack.RateLimitedError
		if err == nil || !errors.As(err, &rateLimitErr) || attempt >= maxRetries {
			return err
		}

		logger.Info("Rate limited by Slack API, retrying",
			zap.Duration("retry_after", rateLimitErr.RetryAfter),
			zap.Int("attempt", attempt+1))

		timer := time.NewTimer(rateLimitErr.RetryAfter)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
