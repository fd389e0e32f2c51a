package export

import (
	"strconv"
	"strings"
	"time"
)

// UnknownUser is rendered when a message carries no author at all.
const UnknownUser = "Unknown User"

// Message is a single channel message or thread reply.
// ID is the Slack timestamp ("seconds.micros") and doubles as the ordering key.
type Message struct {
	ID           string
	AuthorID     string
	Text         string
	ThreadRootID string
}

// IsThreadRoot reports whether the message starts a thread.
func (m Message) IsThreadRoot() bool {
	return m.ThreadRootID != "" && m.ThreadRootID == m.ID
}

// Time converts the message timestamp to an instant. Malformed ids yield the zero time.
func (m Message) Time() time.Time {
	sec, frac, _ := strings.Cut(m.ID, ".")
	s, err := strconv.ParseInt(sec, 10, 64)
	if err != nil {
		return time.Time{}
	}
	var nsec int64
	if frac != "" {
		// pad or cut to nanoseconds
		frac = (frac + "000000000")[:9]
		nsec, _ = strconv.ParseInt(frac, 10, 64)
	}
	return time.Unix(s, nsec).UTC()
}

// UserDirectory maps author ids to display names.
type UserDirectory map[string]string

// Name resolves an author id: directory entry, then the raw id, then UnknownUser.
func (d UserDirectory) Name(authorID string) string {
	if name, ok := d[authorID]; ok && name != "" {
		return name
	}
	if authorID != "" {
		return authorID
	}
	return UnknownUser
}

// lessID orders Slack timestamps numerically; plain string comparison breaks
// once the seconds part changes width.
func lessID(a, b string) bool {
	ta, tb := Message{ID: a}.Time(), Message{ID: b}.Time()
	if ta.Equal(tb) {
		return a < b
	}
	return ta.Before(tb)
}
