package export

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/matillion/slack-export/internal/timewindow"
)

// Options tunes an Exporter. Zero fields take the values from DefaultOptions.
type Options struct {
	PageSize          int
	ReplyLimit        int
	ReplyInterval     time.Duration
	DefaultRetryAfter time.Duration
	ProgressEvery     int
	NotifyTimeout     time.Duration
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		PageSize:          200,
		ReplyLimit:        1000,
		ReplyInterval:     5 * time.Second,
		DefaultRetryAfter: 60 * time.Second,
		ProgressEvery:     DefaultProgressEvery,
		NotifyTimeout:     10 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	o.PageSize = clampPageSize(o.PageSize)
	if o.ReplyLimit <= 0 {
		o.ReplyLimit = d.ReplyLimit
	}
	if o.ReplyInterval <= 0 {
		o.ReplyInterval = d.ReplyInterval
	}
	if o.DefaultRetryAfter <= 0 {
		o.DefaultRetryAfter = d.DefaultRetryAfter
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = d.ProgressEvery
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = d.NotifyTimeout
	}
	return o
}

// Request is one operator export request.
type Request struct {
	// ID identifies the export in logs and replies; generated when empty.
	ID          string
	ChannelID   string
	Start       string
	End         string
	SkipThreads bool
}

// Result summarizes a finished export.
type Result struct {
	ID                string     `json:"export_id"`
	ChannelID         string     `json:"channel_id"`
	ChannelName       string     `json:"channel_name"`
	Period            string     `json:"period"`
	TotalMessages     int        `json:"total_messages"`
	PrimaryMessages   int        `json:"primary_messages"`
	ThreadCount       int        `json:"thread_count"`
	SkippedThreads    int        `json:"skipped_threads,omitempty"`
	IncompleteThreads []string   `json:"incomplete_threads,omitempty"`
	Artifacts         []Artifact `json:"artifacts,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        time.Time  `json:"finished_at"`
}

// NewID returns a new export id.
func NewID() string {
	return ulid.Make().String()
}

// Exporter runs the export pipeline: resolve window, fetch history, merge
// threads, render, write and deliver.
type Exporter struct {
	source Source
	writer ArtifactWriter
	opts   Options
	logger *zap.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewExporter creates an Exporter reading from source and writing with writer.
func NewExporter(source Source, writer ArtifactWriter, opts Options, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		source: source,
		writer: writer,
		opts:   opts.withDefaults(),
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// run holds everything that belongs to a single export, so concurrent exports
// share nothing but the Exporter's immutable configuration.
type run struct {
	req         Request
	window      timewindow.Window
	channelName string
	logger      *zap.Logger
	notifier    Notifier
	deliverer   Deliverer
	progress    *ProgressReporter
	result      *Result
	// delivered lists the artifacts already handed to the deliverer.
	delivered []string
}

// Run performs one export to completion. Progress goes to notifier on a best
// effort basis; a fatal error is reported through notifier.Failure exactly
// once and returned. An empty window is reported through notifier.Notice and
// returns a result without artifacts. deliverer may be nil when artifacts only
// need to be written.
func (e *Exporter) Run(ctx context.Context, req Request, notifier Notifier, deliverer Deliverer) (*Result, error) {
	if req.ID == "" {
		req.ID = NewID()
	}
	logger := e.logger.With(
		zap.String("export_id", req.ID),
		zap.String("channel_id", req.ChannelID))

	r := &run{
		req:       req,
		logger:    logger,
		notifier:  notifier,
		deliverer: deliverer,
		progress:  NewProgressReporter(ctx, notifier, e.opts.NotifyTimeout, logger),
		result: &Result{
			ID:        req.ID,
			ChannelID: req.ChannelID,
			StartedAt: e.now(),
		},
	}

	logger.Info("Export started",
		zap.String("start", req.Start),
		zap.String("end", req.End),
		zap.Bool("skip_threads", req.SkipThreads))

	err := e.execute(ctx, r)
	r.progress.Close()
	r.result.FinishedAt = e.now()

	switch {
	case errors.Is(err, ErrEmptyResult):
		logger.Info("Export found no messages")
		e.notice(ctx, r, fmt.Sprintf("No messages found in #%s for %s.", r.channelName, r.window))
		return r.result, nil
	case err != nil:
		logger.Error("Export failed", zap.Error(err))
		// a canceled export still reports its failure
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.NotifyTimeout)
		defer cancel()
		if nerr := notifier.Failure(nctx, FailureMessage(err)+partialDeliveryNote(r.delivered)); nerr != nil {
			logger.Error("Failed to notify requester of export failure", zap.Error(nerr))
		}
		return nil, err
	}

	if r.result.SkippedThreads > 0 {
		e.notice(ctx, r, fmt.Sprintf("Skipped %d thread(s); their replies are not included.", r.result.SkippedThreads))
	}
	logger.Info("Export finished",
		zap.Int("total_messages", r.result.TotalMessages),
		zap.Int("threads", r.result.ThreadCount),
		zap.Int("incomplete_threads", len(r.result.IncompleteThreads)),
		zap.Duration("elapsed", r.result.FinishedAt.Sub(r.result.StartedAt)))
	return r.result, nil
}

func (e *Exporter) execute(ctx context.Context, r *run) error {
	window, err := timewindow.Parse(r.req.Start, r.req.End)
	if err != nil {
		return err
	}
	r.window = window
	r.result.Period = window.String()

	name, err := e.source.ChannelName(ctx, r.req.ChannelID)
	if err != nil {
		return fmt.Errorf("failed to get channel info: %w", err)
	}
	r.channelName = name
	r.result.ChannelName = name

	r.progress.Send(fmt.Sprintf("Exporting #%s for %s...", name, window))

	primary, err := e.fetchHistory(ctx, r)
	if err != nil {
		return err
	}
	if len(primary) == 0 {
		return ErrEmptyResult
	}
	r.result.PrimaryMessages = len(primary)

	dir, err := e.source.Users(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	roots := ThreadRoots(primary)
	if len(roots) > 0 && !r.req.SkipThreads {
		minutes := remainingMinutes(len(roots), e.opts.ReplyInterval)
		r.progress.Send(fmt.Sprintf("Found %d messages and %d threads. Fetching replies takes about %d min.",
			len(primary), len(roots), minutes))
	}

	fetcher := NewReplyFetcher(e.source, ReplyOptions{
		Interval:          e.opts.ReplyInterval,
		DefaultRetryAfter: e.opts.DefaultRetryAfter,
		Limit:             e.opts.ReplyLimit,
	}, r.logger)
	fetcher.sleep = e.sleep

	assembler := NewReassembler(fetcher, r.progress.Send, e.opts.ProgressEvery, e.opts.ReplyInterval, r.logger)
	assembly, err := assembler.Assemble(ctx, r.req.ChannelID, primary, dir, r.req.SkipThreads)
	if err != nil {
		return err
	}
	// later notifications must not overtake queued progress
	r.progress.Close()

	r.result.TotalMessages = assembly.TotalMessages
	r.result.ThreadCount = assembly.ThreadCount
	r.result.SkippedThreads = assembly.SkippedThreads
	r.result.IncompleteThreads = assembly.IncompleteThreads

	h := header{
		channelName:       name,
		window:            window,
		exportedAt:        e.now(),
		totalMessages:     assembly.TotalMessages,
		skippedThreads:    assembly.SkippedThreads,
		incompleteThreads: len(assembly.IncompleteThreads),
	}

	base := BaseName(name, window)
	for _, doc := range []struct {
		format  Format
		content []byte
	}{
		{FormatPlain, plainDocument(h, assembly.Transcript)},
		{FormatMarkdown, markupDocument(h, assembly.Transcript)},
	} {
		artifact, err := e.writer.Write(base, doc.format, doc.content)
		if err != nil {
			return fmt.Errorf("failed to write %s artifact: %w", doc.format, err)
		}
		r.logger.Info("Artifact written",
			zap.String("path", artifact.Path),
			zap.Int64("bytes", artifact.Bytes))
		r.result.Artifacts = append(r.result.Artifacts, artifact)
	}

	if r.deliverer != nil {
		caption := deliveryCaption(r.result)
		for _, artifact := range r.result.Artifacts {
			if err := r.deliverer.Deliver(ctx, artifact, caption); err != nil {
				if len(r.delivered) > 0 {
					r.logger.Warn("Artifact delivery incomplete",
						zap.Strings("delivered", r.delivered),
						zap.String("failed", artifact.Name))
				}
				return fmt.Errorf("failed to deliver %s: %w", artifact.Name, err)
			}
			r.delivered = append(r.delivered, artifact.Name)
		}
	}
	return nil
}

// fetchHistory pages through the window and returns the messages oldest first.
func (e *Exporter) fetchHistory(ctx context.Context, r *run) ([]Message, error) {
	msgs, err := Paginate(ctx, func(ctx context.Context, cursor string) ([]Message, string, error) {
		page, err := e.source.History(ctx, HistoryQuery{
			ChannelID: r.req.ChannelID,
			Window:    r.window,
			Limit:     e.opts.PageSize,
			Cursor:    cursor,
		})
		if err != nil {
			return nil, "", err
		}
		r.logger.Debug("History page fetched",
			zap.Int("messages", len(page.Messages)),
			zap.Bool("has_more", page.NextCursor != ""))
		return page.Messages, page.NextCursor, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	slices.SortStableFunc(msgs, func(a, b Message) int {
		switch {
		case lessID(a.ID, b.ID):
			return -1
		case lessID(b.ID, a.ID):
			return 1
		}
		return 0
	})
	return msgs, nil
}

func (e *Exporter) notice(ctx context.Context, r *run, text string) {
	if err := r.notifier.Notice(ctx, text); err != nil {
		r.logger.Warn("Failed to send notice", zap.Error(err))
	}
}

// partialDeliveryNote tells the requester which files already reached the
// channel when a later upload failed.
func partialDeliveryNote(delivered []string) string {
	if len(delivered) == 0 {
		return ""
	}
	return fmt.Sprintf(" Only %s was posted; the export is incomplete.", strings.Join(delivered, ", "))
}

func deliveryCaption(res *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Export of #%s for %s: %d messages.", res.ChannelName, res.Period, res.TotalMessages)
	if n := len(res.IncompleteThreads); n > 0 {
		fmt.Fprintf(&b, " Replies could not be fetched for %d thread(s).", n)
	}
	return b.String()
}
