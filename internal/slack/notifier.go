package slack

import (
	"bytes"
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/matillion/slack-export/internal/export"
)

// Requester reports back to the person who asked for an export: status
// messages go to them ephemerally in the channel, artifacts are uploaded to
// the channel.
type Requester struct {
	api       SlackAPI
	channelID string
	userID    string
	logger    *zap.Logger
}

// NewRequester creates a Requester for userID in channelID. With an empty
// userID, status messages are only logged.
func (c *Client) NewRequester(channelID, userID string) *Requester {
	return &Requester{
		api:       c.api,
		channelID: channelID,
		userID:    userID,
		logger:    c.logger.With(zap.String("channel_id", channelID), zap.String("user_id", userID)),
	}
}

func (r *Requester) Progress(ctx context.Context, text string) error {
	return r.post(ctx, "progress", text)
}

func (r *Requester) Notice(ctx context.Context, text string) error {
	return r.post(ctx, "notice", text)
}

func (r *Requester) Failure(ctx context.Context, text string) error {
	return r.post(ctx, "failure", text)
}

func (r *Requester) post(ctx context.Context, kind, text string) error {
	r.logger.Info("Export status", zap.String("kind", kind), zap.String("text", text))
	if r.userID == "" {
		return nil
	}
	if _, err := r.api.PostEphemeralContext(ctx, r.channelID, r.userID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("failed to post %s message: %w", kind, err)
	}
	return nil
}

// Deliver uploads the artifact to the channel with caption as its comment.
func (r *Requester) Deliver(ctx context.Context, artifact export.Artifact, caption string) error {
	summary, err := r.api.UploadFileContext(ctx, slack.UploadFileParameters{
		Reader:         bytes.NewReader(artifact.Content),
		FileSize:       len(artifact.Content),
		Filename:       artifact.Name,
		Title:          artifact.Name,
		InitialComment: caption,
		Channel:        r.channelID,
	})
	if err != nil {
		return convertError(err)
	}
	r.logger.Info("Artifact uploaded",
		zap.String("file_id", summary.ID),
		zap.String("name", artifact.Name))
	return nil
}
