package slack

import (
	"context"
	"errors"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/matillion/slack-export/internal/export"
)

// source implements export.Source on top of the Slack Web API.
type source struct {
	api    SlackAPI
	index  *channelIndex
	logger *zap.Logger
}

// History fetches one page of conversations.history for the window. Slack
// returns newest first; the exporter sorts.
func (s *source) History(ctx context.Context, q export.HistoryQuery) (export.Page, error) {
	resp, err := s.api.GetConversationHistoryContext(ctx, &slack.GetConversationHistoryParameters{
		ChannelID: q.ChannelID,
		Cursor:    q.Cursor,
		Oldest:    q.Window.Oldest(),
		Latest:    q.Window.Latest(),
		Inclusive: true,
		Limit:     q.Limit,
	})
	if err != nil {
		return export.Page{}, convertError(err)
	}

	page := export.Page{Messages: make([]export.Message, 0, len(resp.Messages))}
	for _, msg := range resp.Messages {
		m := convertMessage(msg)
		// latest is inclusive on the wire; the window end is not
		if !m.Time().Before(q.Window.End) {
			continue
		}
		page.Messages = append(page.Messages, m)
	}
	if resp.HasMore {
		page.NextCursor = resp.ResponseMetaData.NextCursor
	}
	return page, nil
}

// Replies fetches one page of conversations.replies. The exporter follows the
// cursor so that every page goes through its reply limiter.
func (s *source) Replies(ctx context.Context, q export.RepliesQuery) (export.Page, error) {
	msgs, hasMore, next, err := s.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
		ChannelID: q.ChannelID,
		Timestamp: q.RootID,
		Cursor:    q.Cursor,
		Limit:     q.Limit,
	})
	if err != nil {
		return export.Page{}, convertError(err)
	}

	page := export.Page{Messages: make([]export.Message, 0, len(msgs))}
	for _, msg := range msgs {
		page.Messages = append(page.Messages, convertMessage(msg))
	}
	if hasMore {
		page.NextCursor = next
	}
	return page, nil
}

// Users lists the workspace members once and maps each to its display name.
func (s *source) Users(ctx context.Context) (export.UserDirectory, error) {
	var users []slack.User
	err := withRetry(ctx, s.logger, func() error {
		var e error
		users, e = s.api.GetUsersContext(ctx, slack.GetUsersOptionLimit(export.MaxPageSize))
		return e
	})
	if err != nil {
		return nil, convertError(err)
	}

	dir := make(export.UserDirectory, len(users))
	for _, u := range users {
		dir[u.ID] = displayName(u)
	}
	s.logger.Debug("User directory loaded", zap.Int("users", len(dir)))
	return dir, nil
}

// ChannelName returns the channel's name as shown in Slack, without '#'.
// Channels already in the index are answered without a remote call.
func (s *source) ChannelName(ctx context.Context, channelID string) (string, error) {
	if s.index != nil {
		if ch, ok := s.index.GetByID(channelID); ok && ch.Name != "" {
			return ch.Name, nil
		}
	}
	var ch *slack.Channel
	err := withRetry(ctx, s.logger, func() error {
		var e error
		ch, e = s.api.GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
			ChannelID: channelID,
		})
		return e
	})
	if err != nil {
		return "", convertError(err)
	}
	if ch.Name != "" {
		return ch.Name, nil
	}
	// direct messages have no name
	return ch.ID, nil
}

func displayName(u slack.User) string {
	switch {
	case u.Profile.DisplayName != "":
		return u.Profile.DisplayName
	case u.RealName != "":
		return u.RealName
	default:
		return u.Name
	}
}

func convertMessage(msg slack.Message) export.Message {
	author := msg.User
	if author == "" {
		author = msg.BotID
	}
	return export.Message{
		ID:           msg.Timestamp,
		AuthorID:     author,
		Text:         cleanText(msg.Text),
		ThreadRootID: msg.ThreadTimestamp,
	}
}

// convertError maps Slack's rate limit error to the export package's, so the
// reply fetcher can honor Retry-After without knowing about slack-go.
func convertError(err error) error {
	var rl *slack.RateLimitedError
	if errors.As(err, &rl) {
		return &export.RateLimitedError{RetryAfter: rl.RetryAfter}
	}
	return err
}
