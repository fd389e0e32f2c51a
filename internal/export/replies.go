package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ReplyOptions controls how thread replies are fetched.
type ReplyOptions struct {
	// Interval is the minimum spacing between reply calls. Zero disables throttling.
	Interval time.Duration
	// DefaultRetryAfter is the backoff used when a rate-limit signal carries no duration.
	DefaultRetryAfter time.Duration
	// Limit is the maximum number of messages requested per thread.
	Limit int
}

// ReplyFetcher fetches one thread at a time under a shared token bucket.
// Every reply call, including each further page of a long thread, waits for a
// token, so consecutive calls are spaced by at least Interval. A rate-limit
// response is retried exactly once per thread after backing off.
type ReplyFetcher struct {
	source            Source
	limiter           *rate.Limiter
	defaultRetryAfter time.Duration
	limit             int
	sleep             func(ctx context.Context, d time.Duration) error
	logger            *zap.Logger
}

// NewReplyFetcher creates a fetcher with its own limiter. The limiter starts
// empty so the first call is delayed like every other one.
func NewReplyFetcher(source Source, opts ReplyOptions, logger *zap.Logger) *ReplyFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.Interval > 0 {
		limit = rate.Every(opts.Interval)
	}
	limiter := rate.NewLimiter(limit, 1)
	limiter.Allow()

	return &ReplyFetcher{
		source:            source,
		limiter:           limiter,
		defaultRetryAfter: opts.DefaultRetryAfter,
		limit:             opts.Limit,
		sleep:             sleepContext,
		logger:            logger,
	}
}

// Fetch returns the replies of the thread rooted at rootID, excluding the root.
//
// Remote failures are not fatal: the result is then empty and the error wraps
// ErrRepliesIncomplete so the caller can record the thread as incomplete.
// Cancellation of ctx is returned as is and ends the export.
func (f *ReplyFetcher) Fetch(ctx context.Context, channelID, rootID string) ([]Message, error) {
	retried := false
	thread, err := Paginate(ctx, func(ctx context.Context, cursor string) ([]Message, string, error) {
		q := RepliesQuery{ChannelID: channelID, RootID: rootID, Limit: f.limit, Cursor: cursor}
		page, err := f.call(ctx, q)

		var rl *RateLimitedError
		if err != nil && !retried && errors.As(err, &rl) {
			retried = true
			if err := f.backoff(ctx, rootID, rl.RetryAfter); err != nil {
				return nil, "", err
			}
			page, err = f.call(ctx, q)
		}
		if err != nil {
			return nil, "", err
		}
		return page.Messages, page.NextCursor, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		msg := "Failed to fetch thread replies, continuing without them"
		if retried {
			msg = "Retry after rate limit failed, dropping thread replies"
		}
		f.logger.Warn(msg, zap.String("thread_ts", rootID), zap.Error(err))
		return nil, fmt.Errorf("%w: thread %s: %v", ErrRepliesIncomplete, rootID, err)
	}

	replies := make([]Message, 0, len(thread))
	for _, msg := range thread {
		if msg.ID == rootID {
			continue
		}
		replies = append(replies, msg)
	}
	return replies, nil
}

func (f *ReplyFetcher) backoff(ctx context.Context, rootID string, wait time.Duration) error {
	if wait <= 0 {
		wait = f.defaultRetryAfter
	}
	f.logger.Info("Rate limited fetching thread replies, backing off",
		zap.String("thread_ts", rootID),
		zap.Duration("retry_after", wait))
	return f.sleep(ctx, wait)
}

// call waits for a limiter token and requests one page of the thread.
func (f *ReplyFetcher) call(ctx context.Context, q RepliesQuery) (Page, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return Page{}, err
	}
	return f.source.Replies(ctx, q)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
