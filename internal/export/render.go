package export

import (
	"fmt"
	"strings"

	"github.com/matillion/slack-export/internal/timewindow"
)

// TimestampLayout is how message times appear in both formats.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	plainIndent  = "    "
	markupIndent = "  "
)

// RenderPlain renders one message as "{indent}[{time}] {name}: {text}".
// Continuation lines of multi-line text keep the indent.
func RenderPlain(msg Message, dir UserDirectory, indent int) string {
	prefix := strings.Repeat(plainIndent, indent)
	text := strings.ReplaceAll(msg.Text, "\n", "\n"+prefix)
	return fmt.Sprintf("%s[%s] %s: %s", prefix, localTimestamp(msg), dir.Name(msg.AuthorID), text)
}

// RenderMarkup renders one message as markdown. Top-level messages become a
// heading followed by the text; replies become an indented block quote.
func RenderMarkup(msg Message, dir UserDirectory, indent int) string {
	name := dir.Name(msg.AuthorID)
	ts := localTimestamp(msg)
	if indent == 0 {
		return fmt.Sprintf("### %s (%s)\n\n%s", name, ts, msg.Text)
	}

	prefix := strings.Repeat(markupIndent, indent) + "> "
	var b strings.Builder
	fmt.Fprintf(&b, "%s**%s** (%s)", prefix, name, ts)
	for _, line := range strings.Split(msg.Text, "\n") {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(prefix+line, " "))
	}
	return b.String()
}

func localTimestamp(msg Message) string {
	return timewindow.Local(msg.Time()).Format(TimestampLayout)
}
