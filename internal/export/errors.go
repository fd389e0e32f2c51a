package export

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/matillion/slack-export/internal/timewindow"
)

var (
	// ErrEmptyResult means the window contained no messages. It ends an export
	// without being reported as a failure.
	ErrEmptyResult = errors.New("no messages in the requested period")

	// ErrRepliesIncomplete means a thread's replies were dropped after the
	// bounded retry gave up.
	ErrRepliesIncomplete = errors.New("thread replies incomplete")
)

// RateLimitedError is returned by a Source when the remote service asks the
// caller to slow down.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

const (
	permissionMessage = "The export bot does not have permission to read this channel. Invite it to the channel or grant the missing scope."
	notFoundMessage   = "The channel could not be found. Check the channel name or ID."
	rateLimitMessage  = "Slack is rate limiting requests right now. Please try the export again in a few minutes."
	authMessage       = "The export bot could not authenticate with Slack. Ask an administrator to refresh its credentials."
)

// failureMessages maps remote error codes to what the operator is told. Order
// matters: the first matching entry wins.
var failureMessages = []struct {
	codes   []string
	message string
}{
	{
		codes:   []string{"missing_scope", "not_in_channel", "not_allowed_token_type", "access_denied"},
		message: permissionMessage,
	},
	{
		codes:   []string{"channel_not_found"},
		message: notFoundMessage,
	},
	{
		codes:   []string{"ratelimited", "rate_limited", "rate limited"},
		message: rateLimitMessage,
	},
	{
		codes:   []string{"invalid_auth", "token_expired", "token_revoked", "not_authed", "account_inactive"},
		message: authMessage,
	},
}

// FailureMessage turns a fatal export error into the sentence shown to the
// operator.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, timewindow.ErrInvalidFormat):
		return "Invalid date format. Use YYYY-MM-DD or \"YYYY-MM-DD HH:mm\"."
	case errors.Is(err, timewindow.ErrInvalidRange):
		return "The start of the period must be before its end."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The export was canceled before it finished."
	}

	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rateLimitMessage
	}

	errStr := err.Error()
	for _, fm := range failureMessages {
		for _, code := range fm.codes {
			if strings.Contains(errStr, code) {
				return fm.message
			}
		}
	}
	return fmt.Sprintf("The export failed: %v", err)
}
