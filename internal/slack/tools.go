package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/matillion/slack-export/internal/export"
	"github.com/matillion/slack-export/internal/timewindow"
)

// ListChannelsInput defines input for listing channels
type ListChannelsInput struct {
	Types  string `json:"types,omitempty" jsonschema:"Channel types: public_channel, private_channel, mpim, im (comma-separated). Default: public_channel, private_channel"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max channels to return (default 100)"`
	Cursor string `json:"cursor,omitempty" jsonschema:"Pagination cursor for fetching more results"`
}

// ChannelInfo represents a Slack channel
type ChannelInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Topic       string `json:"topic,omitempty"`
	MemberCount int    `json:"member_count"`
	IsPrivate   bool   `json:"is_private"`
	IsArchived  bool   `json:"is_archived"`
}

// ListChannelsOutput contains one page of channels
type ListChannelsOutput struct {
	Channels   []ChannelInfo `json:"channels"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ListChannels lists channels the token has access to, so a caller can find
// the channel to export.
func (c *Client) ListChannels(ctx context.Context, req *mcp.CallToolRequest, input ListChannelsInput) (*mcp.CallToolResult, ListChannelsOutput, error) {
	types := []string{"public_channel", "private_channel"}
	if input.Types != "" {
		types = strings.Split(input.Types, ",")
		for i := range types {
			types[i] = strings.TrimSpace(types[i])
		}
	}

	limit := 100
	if input.Limit > 0 && input.Limit <= export.MaxPageSize {
		limit = input.Limit
	}

	channels, cursor, err := c.listConversations(ctx, &slack.GetConversationsParameters{
		Types:  types,
		Limit:  limit,
		Cursor: input.Cursor,
	})
	if err != nil {
		return nil, ListChannelsOutput{}, fmt.Errorf("failed to list channels: %w", err)
	}

	output := ListChannelsOutput{
		Channels:   make([]ChannelInfo, 0, len(channels)),
		NextCursor: cursor,
	}
	for _, ch := range channels {
		output.Channels = append(output.Channels, ChannelInfo{
			ID:          ch.ID,
			Name:        ch.Name,
			Topic:       ch.Topic.Value,
			MemberCount: ch.NumMembers,
			IsPrivate:   ch.IsPrivate,
			IsArchived:  ch.IsArchived,
		})
	}
	return nil, output, nil
}

// ExportChannelInput defines input for exporting a channel's history
type ExportChannelInput struct {
	Channel     string `json:"channel" jsonschema:"Channel ID or name (e.g., C1234567890 or #general)"`
	Start       string `json:"start" jsonschema:"Start of the period in UTC+9: YYYY-MM-DD or YYYY-MM-DD HH:mm"`
	End         string `json:"end" jsonschema:"End of the period in UTC+9 (exclusive): YYYY-MM-DD or YYYY-MM-DD HH:mm"`
	SkipThreads bool   `json:"skip_threads,omitempty" jsonschema:"Export top-level messages only, without thread replies"`
	NotifyUser  string `json:"notify_user,omitempty" jsonschema:"Slack user ID to send ephemeral progress messages to in the channel"`
	Deliver     bool   `json:"deliver,omitempty" jsonschema:"Upload the exported files to the channel when done"`
	Wait        bool   `json:"wait,omitempty" jsonschema:"Wait for the export to finish and return its files instead of returning an export ID immediately"`
}

// ExportChannelOutput reports a finished export, or the ID of one started in
// the background.
type ExportChannelOutput struct {
	ExportID          string            `json:"export_id"`
	Status            string            `json:"status"`
	ChannelName       string            `json:"channel_name,omitempty"`
	Period            string            `json:"period,omitempty"`
	TotalMessages     int               `json:"total_messages"`
	ThreadCount       int               `json:"thread_count"`
	SkippedThreads    int               `json:"skipped_threads,omitempty"`
	IncompleteThreads []string          `json:"incomplete_threads,omitempty"`
	Files             []export.Artifact `json:"files,omitempty"`
	ElapsedSeconds    float64           `json:"elapsed_seconds,omitempty"`
}

func newExportOutput(r *export.Result) ExportChannelOutput {
	return ExportChannelOutput{
		ExportID:          r.ID,
		Status:            statusFinished,
		ChannelName:       r.ChannelName,
		Period:            r.Period,
		TotalMessages:     r.TotalMessages,
		ThreadCount:       r.ThreadCount,
		SkippedThreads:    r.SkippedThreads,
		IncompleteThreads: r.IncompleteThreads,
		Files:             r.Artifacts,
		ElapsedSeconds:    r.FinishedAt.Sub(r.StartedAt).Seconds(),
	}
}

const (
	statusStarted  = "started"
	statusFinished = "finished"
)

// ExportChannel exports a channel's messages for a period into a plain text
// and a markdown transcript, with thread replies indented under their parent.
// The period is checked before anything is fetched. Unless input.Wait is set
// the export runs in the background and only its ID is returned.
func (c *Client) ExportChannel(ctx context.Context, req *mcp.CallToolRequest, input ExportChannelInput) (*mcp.CallToolResult, ExportChannelOutput, error) {
	if _, err := timewindow.Parse(input.Start, input.End); err != nil {
		return nil, ExportChannelOutput{}, fmt.Errorf("%s: %w", export.FailureMessage(err), err)
	}

	channelID, err := c.GetChannelID(ctx, input.Channel)
	if err != nil {
		return nil, ExportChannelOutput{}, err
	}

	exportReq := export.Request{
		ID:          export.NewID(),
		ChannelID:   channelID,
		Start:       input.Start,
		End:         input.End,
		SkipThreads: input.SkipThreads,
	}
	requester := c.NewRequester(channelID, input.NotifyUser)
	var deliverer export.Deliverer
	if input.Deliver {
		deliverer = requester
	}

	if !input.Wait {
		c.exports.Add(1)
		go func() {
			defer c.exports.Done()
			// the export outlives the tool call that started it
			if _, err := c.exporter.Run(context.WithoutCancel(ctx), exportReq, requester, deliverer); err != nil {
				c.logger.Warn("Background export failed",
					zap.String("export_id", exportReq.ID),
					zap.Error(err))
			}
		}()
		return nil, ExportChannelOutput{ExportID: exportReq.ID, Status: statusStarted}, nil
	}

	result, err := c.exporter.Run(ctx, exportReq, requester, deliverer)
	if err != nil {
		return nil, ExportChannelOutput{}, fmt.Errorf("%s: %w", export.FailureMessage(err), err)
	}
	return nil, newExportOutput(result), nil
}
