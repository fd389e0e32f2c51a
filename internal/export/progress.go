package export

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

const progressQueueSize = 32

// ProgressReporter delivers progress notifications in order on a single
// goroutine so the export never waits on the notifier. Notifications are best
// effort: a failed send is logged and a full queue drops the message.
type ProgressReporter struct {
	ctx      context.Context
	notifier Notifier
	timeout  time.Duration
	logger   *zap.Logger

	queue     chan string
	done      chan struct{}
	closeOnce sync.Once
}

// NewProgressReporter starts the delivery goroutine. Close must be called to
// release it.
func NewProgressReporter(ctx context.Context, notifier Notifier, timeout time.Duration, logger *zap.Logger) *ProgressReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &ProgressReporter{
		ctx:      context.WithoutCancel(ctx),
		notifier: notifier,
		timeout:  timeout,
		logger:   logger,
		queue:    make(chan string, progressQueueSize),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

// Send queues a notification without blocking.
func (p *ProgressReporter) Send(text string) {
	select {
	case p.queue <- text:
	default:
		p.logger.Warn("Progress queue full, dropping notification", zap.String("text", text))
	}
}

// Close stops accepting notifications and waits for queued ones to be attempted.
func (p *ProgressReporter) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
	})
	<-p.done
}

func (p *ProgressReporter) loop() {
	defer close(p.done)
	for text := range p.queue {
		ctx, cancel := p.sendContext()
		if err := p.notifier.Progress(ctx, text); err != nil {
			p.logger.Warn("Failed to send progress notification", zap.Error(err))
		}
		cancel()
	}
}

func (p *ProgressReporter) sendContext() (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(p.ctx)
	}
	return context.WithTimeout(p.ctx, p.timeout)
}

// remainingMinutes estimates the time left for the unprocessed threads,
// rounded up to whole minutes.
func remainingMinutes(remaining int, perThread time.Duration) int {
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(float64(remaining) * perThread.Seconds() / 60))
}

func threadProgressMessage(done, total int, perThread time.Duration) string {
	return fmt.Sprintf("Processing threads: %d/%d done, about %d min remaining.",
		done, total, remainingMinutes(total-done, perThread))
}
