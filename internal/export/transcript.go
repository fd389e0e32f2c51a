package export

import (
	"fmt"
	"slices"
)

type transcriptLine struct {
	id     string
	depth  int
	plain  string
	markup string
}

// Transcript is the ordered, rendered export body. Each entry carries both
// renderings, so the plain and markup views always splice at the same position.
type Transcript struct {
	lines []transcriptLine
}

// NewTranscript renders the top-level messages in the given order.
func NewTranscript(msgs []Message, dir UserDirectory) *Transcript {
	t := &Transcript{lines: make([]transcriptLine, 0, len(msgs))}
	for _, msg := range msgs {
		t.lines = append(t.lines, newLine(msg, dir, 0))
	}
	return t
}

func newLine(msg Message, dir UserDirectory, depth int) transcriptLine {
	return transcriptLine{
		id:     msg.ID,
		depth:  depth,
		plain:  RenderPlain(msg, dir, depth),
		markup: RenderMarkup(msg, dir, depth),
	}
}

// SpliceReplies inserts the rendered replies directly after the top-level line
// whose id is rootID, after any replies already spliced there. The root is
// located by id because earlier splices shift positions.
func (t *Transcript) SpliceReplies(rootID string, replies []Message, dir UserDirectory) error {
	at := t.indexOf(rootID)
	if at < 0 {
		return fmt.Errorf("thread root %s is not in the transcript", rootID)
	}
	if len(replies) == 0 {
		return nil
	}

	end := at + 1
	for end < len(t.lines) && t.lines[end].depth > 0 {
		end++
	}

	block := make([]transcriptLine, 0, len(replies))
	for _, reply := range replies {
		block = append(block, newLine(reply, dir, 1))
	}
	t.lines = slices.Insert(t.lines, end, block...)
	return nil
}

// indexOf only considers top-level lines. A reply broadcast to the channel
// shows up both in history and in its thread, so ids are unique only among
// top-level lines.
func (t *Transcript) indexOf(id string) int {
	return slices.IndexFunc(t.lines, func(l transcriptLine) bool {
		return l.depth == 0 && l.id == id
	})
}

// Len returns the number of rendered entries.
func (t *Transcript) Len() int {
	return len(t.lines)
}

// IDs returns message ids in transcript order.
func (t *Transcript) IDs() []string {
	ids := make([]string, len(t.lines))
	for i, l := range t.lines {
		ids[i] = l.id
	}
	return ids
}

// Plain returns the plain rendering, one entry per message.
func (t *Transcript) Plain() []string {
	out := make([]string, len(t.lines))
	for i, l := range t.lines {
		out[i] = l.plain
	}
	return out
}

// Markup returns the markdown rendering, one block per message.
func (t *Transcript) Markup() []string {
	out := make([]string, len(t.lines))
	for i, l := range t.lines {
		out[i] = l.markup
	}
	return out
}
