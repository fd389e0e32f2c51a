package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultProgressEvery is how many threads are processed between progress notifications.
const DefaultProgressEvery = 10

type replyFetcher interface {
	Fetch(ctx context.Context, channelID, rootID string) ([]Message, error)
}

// Assembly is the outcome of merging thread replies into the primary messages.
type Assembly struct {
	Transcript        *Transcript
	TotalMessages     int
	ThreadCount       int
	SkippedThreads    int
	IncompleteThreads []string
}

// Reassembler fetches thread replies and splices them after their roots.
type Reassembler struct {
	fetcher   replyFetcher
	progress  func(text string)
	every     int
	perThread time.Duration
	logger    *zap.Logger
}

// NewReassembler builds a reassembler. progress may be nil; perThread is used
// only for the remaining-time estimate.
func NewReassembler(fetcher replyFetcher, progress func(string), every int, perThread time.Duration, logger *zap.Logger) *Reassembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if progress == nil {
		progress = func(string) {}
	}
	if every <= 0 {
		every = DefaultProgressEvery
	}
	return &Reassembler{
		fetcher:   fetcher,
		progress:  progress,
		every:     every,
		perThread: perThread,
		logger:    logger,
	}
}

// ThreadRoots returns the messages that start a thread, in their original order.
func ThreadRoots(msgs []Message) []Message {
	var roots []Message
	for _, msg := range msgs {
		if msg.IsThreadRoot() {
			roots = append(roots, msg)
		}
	}
	return roots
}

// Assemble renders the primary messages and, unless skip is set, splices each
// thread's replies directly after its root. Threads are processed sequentially
// in chronological order. Reply failures leave the thread without replies and
// are reported in IncompleteThreads.
func (r *Reassembler) Assemble(ctx context.Context, channelID string, primary []Message, dir UserDirectory, skip bool) (*Assembly, error) {
	roots := ThreadRoots(primary)
	a := &Assembly{
		Transcript:    NewTranscript(primary, dir),
		TotalMessages: len(primary),
		ThreadCount:   len(roots),
	}
	if skip {
		a.SkippedThreads = len(roots)
		return a, nil
	}

	for i, root := range roots {
		replies, err := r.fetcher.Fetch(ctx, channelID, root.ID)
		if err != nil {
			if !errors.Is(err, ErrRepliesIncomplete) {
				return nil, err
			}
			a.IncompleteThreads = append(a.IncompleteThreads, root.ID)
		}

		if err := a.Transcript.SpliceReplies(root.ID, replies, dir); err != nil {
			return nil, fmt.Errorf("failed to splice thread: %w", err)
		}
		a.TotalMessages += len(replies)

		done := i + 1
		if done%r.every == 0 || done == len(roots) {
			r.progress(threadProgressMessage(done, len(roots), r.perThread))
		}
		r.logger.Debug("Thread processed",
			zap.String("thread_ts", root.ID),
			zap.Int("replies", len(replies)),
			zap.Int("done", done),
			zap.Int("total", len(roots)))
	}
	return a, nil
}
