package slack

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/matillion/slack-export/internal/export"
)

// SlackAPI defines the Slack API methods used by the client
//
//go:generate go tool mockgen -source=$GOFILE -destination=client_mocks.go -package=slack
type SlackAPI interface {
	GetConversationsContext(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error)
	GetConversationInfoContext(ctx context.Context, input *slack.GetConversationInfoInput) (*slack.Channel, error)
	GetConversationHistoryContext(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error)
	GetConversationRepliesContext(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error)
	GetUsersContext(ctx context.Context, options ...slack.GetUsersOption) ([]slack.User, error)
	PostEphemeralContext(ctx context.Context, channelID, userID string, options ...slack.MsgOption) (string, error)
	UploadFileContext(ctx context.Context, params slack.UploadFileParameters) (*slack.FileSummary, error)
}

// Config holds configuration for the Slack client
type Config struct {
	Token  string // Slack API token (required)
	Cookie string // Slack cookie for xoxc token auth (optional)
	APIURL string // overrides the Slack API base URL (optional)
}

// Client adapts the Slack Web API to the export pipeline and serves the
// MCP tools.
type Client struct {
	api      SlackAPI
	index    *channelIndex
	logger   *zap.Logger
	exporter *export.Exporter

	// exports tracks detached exports started by ExportChannel.
	exports sync.WaitGroup
}

// NewClient creates a Client whose exports are written by writer.
func NewClient(cfg Config, logger *zap.Logger, writer export.ArtifactWriter, opts export.Options) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("slack token is required")
	}

	var slackOpts []slack.Option
	if cfg.Cookie != "" {
		logger.Info("Using cookie authentication for Slack client")
		httpClient := &http.Client{
			Transport: newCookieTransport(cfg.Cookie, logger),
		}
		slackOpts = append(slackOpts, slack.OptionHTTPClient(httpClient))
	}
	if cfg.APIURL != "" {
		slackOpts = append(slackOpts, slack.OptionAPIURL(cfg.APIURL))
	}

	return newClientWithAPI(slack.New(cfg.Token, slackOpts...), logger, writer, opts), nil
}

// newClientWithAPI creates a client with a given SlackAPI (for testing)
func newClientWithAPI(api SlackAPI, logger *zap.Logger, writer export.ArtifactWriter, opts export.Options) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		api:    api,
		index:  newIndex(),
		logger: logger,
	}
	c.exporter = export.NewExporter(c.Source(), writer, opts, logger)
	return c
}

// Source returns the export.Source backed by this client.
func (c *Client) Source() export.Source {
	return &source{api: c.api, index: c.index, logger: c.logger}
}

// Exporter returns the exporter that reads through this client.
func (c *Client) Exporter() *export.Exporter {
	return c.exporter
}

// Wait blocks until every detached export has finished.
func (c *Client) Wait() {
	c.exports.Wait()
}

// GetChannelID accepts either a channel name or ID and returns the channel ID.
// Names are resolved from the channel index, which is loaded from
// conversations.list on the first miss.
func (c *Client) GetChannelID(ctx context.Context, channelOrName string) (string, error) {
	if isChannelID(channelOrName) {
		return channelOrName, nil
	}
	name := strings.TrimPrefix(strings.TrimSpace(channelOrName), "#")

	if ch, ok := c.index.GetByName(name); ok {
		return ch.ID, nil
	}
	if err := c.loadIndex(ctx); err != nil {
		return "", err
	}

	ch, ok := c.index.GetByName(name)
	if !ok {
		return "", fmt.Errorf("channel %q among %d visible channels: %w", name, c.index.Size(), ErrChannelNotFound)
	}

	c.logger.Debug("Channel found in index",
		zap.String("channel_name", ch.Name),
		zap.String("channel_id", ch.ID))

	return ch.ID, nil
}

// loadIndex pages through every channel the token can see. Concurrent callers
// share a single load.
func (c *Client) loadIndex(ctx context.Context) error {
	return c.index.Load(func() error {
		channels, err := export.Paginate(ctx, func(ctx context.Context, cursor string) ([]slack.Channel, string, error) {
			return c.listConversations(ctx, &slack.GetConversationsParameters{
				Types:           []string{"public_channel", "private_channel"},
				Limit:           export.MaxPageSize,
				Cursor:          cursor,
				ExcludeArchived: true,
			})
		})
		if err != nil {
			return fmt.Errorf("failed to list channels: %w", err)
		}
		c.logger.Info("Channel index loaded", zap.Int("channels", len(channels)))
		return nil
	})
}

// isChannelID checks if a string looks like a Slack channel ID
// Channel IDs are uppercase alphanumeric strings starting with C, D, or G
// and are typically 9-11 characters long
func isChannelID(s string) bool {
	if len(s) < 9 {
		return false
	}

	// Must start with C, D, or G
	if s[0] != 'C' && s[0] != 'D' && s[0] != 'G' {
		return false
	}

	// Must be all uppercase alphanumeric
	for _, ch := range s {
		if !((ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')) {
			return false
		}
	}

	return true
}

// listConversations wraps the Slack API call and feeds the channel index.
func (c *Client) listConversations(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	var (
		channels []slack.Channel
		cursor   string
	)
	err := withRetry(ctx, c.logger, func() error {
		var e error
		channels, cursor, e = c.api.GetConversationsContext(ctx, params)
		return e
	})
	if err != nil {
		return nil, "", err
	}
	c.index.Add(channels)
	return channels, cursor, nil
}
