package export

import (
	"context"

	"github.com/matillion/slack-export/internal/timewindow"
)

// HistoryQuery is one bounded page request against a channel's history.
type HistoryQuery struct {
	ChannelID string
	Window    timewindow.Window
	Limit     int
	Cursor    string
}

// RepliesQuery is one page request against a single thread.
type RepliesQuery struct {
	ChannelID string
	RootID    string
	Limit     int
	Cursor    string
}

// Page is one page of history plus the cursor for the next one ("" when exhausted).
type Page struct {
	Messages   []Message
	NextCursor string
}

// Source defines the remote chat-service calls the exporter depends on
//
//go:generate go tool mockgen -source=$GOFILE -destination=source_mocks.go -package=export
type Source interface {
	// History returns one page of top-level channel messages inside the query window.
	History(ctx context.Context, q HistoryQuery) (Page, error)
	// Replies returns one page of the thread rooted at q.RootID. The first page
	// starts with the root itself.
	Replies(ctx context.Context, q RepliesQuery) (Page, error)
	// Users lists every user of the workspace as id -> display name.
	Users(ctx context.Context) (UserDirectory, error)
	// ChannelName returns the human-readable name of a channel.
	ChannelName(ctx context.Context, channelID string) (string, error)
}

// Notifier delivers status messages to the operator who requested an export.
//
// Progress is best effort: callers never retry it and ignore its errors.
// Failure is the terminal notification and is sent exactly once per failed export.
type Notifier interface {
	Progress(ctx context.Context, text string) error
	Notice(ctx context.Context, text string) error
	Failure(ctx context.Context, text string) error
}

// Deliverer hands a finished artifact back to the requesting channel.
type Deliverer interface {
	Deliver(ctx context.Context, artifact Artifact, caption string) error
}
