package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/matillion/slack-export/internal/timewindow"
)

// header is the block written above the transcript in every artifact.
type header struct {
	channelName       string
	window            timewindow.Window
	exportedAt        time.Time
	totalMessages     int
	skippedThreads    int
	incompleteThreads int
}

func (h header) fields() [][2]string {
	fields := [][2]string{
		{"Channel", "#" + h.channelName},
		{"Period", h.window.String()},
		{"Exported at", timewindow.Local(h.exportedAt).Format(TimestampLayout)},
		{"Messages", fmt.Sprintf("%d", h.totalMessages)},
	}
	if h.skippedThreads > 0 {
		fields = append(fields, [2]string{"Threads skipped", fmt.Sprintf("%d", h.skippedThreads)})
	}
	if h.incompleteThreads > 0 {
		fields = append(fields, [2]string{"Threads with missing replies", fmt.Sprintf("%d", h.incompleteThreads)})
	}
	return fields
}

func plainDocument(h header, t *Transcript) []byte {
	var b strings.Builder
	for _, f := range h.fields() {
		fmt.Fprintf(&b, "%s: %s\n", f[0], f[1])
	}
	b.WriteString(strings.Repeat("=", 40))
	b.WriteString("\n\n")
	for _, line := range t.Plain() {
		b.WriteString(line)
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func markupDocument(h header, t *Transcript) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# #%s\n\n", h.channelName)
	for _, f := range h.fields()[1:] {
		fmt.Fprintf(&b, "- **%s**: %s\n", f[0], f[1])
	}
	b.WriteString("\n---\n")
	for _, block := range t.Markup() {
		b.WriteString("\n")
		b.WriteString(block)
		b.WriteString("\n")
	}
	return []byte(b.String())
}
