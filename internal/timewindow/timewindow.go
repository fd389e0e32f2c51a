// Package timewindow resolves operator-supplied date tokens into an absolute
// export window.
//
// Tokens are read as wall-clock time in a fixed +09:00 offset and converted to
// instants, so a window is independent of the host's local time zone.
package timewindow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Offset is the fixed local-to-UTC offset used for parsing and display.
const Offset = 9 * time.Hour

// Zone is the fixed zone every token is interpreted in.
var Zone = time.FixedZone("UTC+9", int(Offset/time.Second))

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

var (
	// ErrInvalidFormat is returned when a token is not a calendar date or date-time.
	ErrInvalidFormat = errors.New("invalid date format")
	// ErrInvalidRange is returned when the start of a window is not before its end.
	ErrInvalidRange = errors.New("invalid date range")
)

// Window is a resolved [Start, End) export range. Both bounds are UTC instants.
type Window struct {
	Start time.Time
	End   time.Time
}

// Parse resolves a start and end token into a Window.
func Parse(start, end string) (Window, error) {
	s, err := ParseToken(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseToken(end)
	if err != nil {
		return Window{}, err
	}
	if !s.Before(e) {
		return Window{}, fmt.Errorf("%w: start %q must be before end %q", ErrInvalidRange, start, end)
	}
	return Window{Start: s, End: e}, nil
}

// ParseToken accepts YYYY-MM-DD (midnight) or YYYY-MM-DD HH:mm in the fixed zone
// and returns the corresponding UTC instant.
func ParseToken(token string) (time.Time, error) {
	token = strings.TrimSpace(token)
	for _, layout := range []string{DateTimeLayout, DateLayout} {
		t, err := time.ParseInLocation(layout, token, Zone)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (want YYYY-MM-DD or YYYY-MM-DD HH:mm)", ErrInvalidFormat, token)
}

// Local returns t in the fixed display zone.
func Local(t time.Time) time.Time {
	return t.In(Zone)
}

// Oldest returns the window start as a Slack timestamp.
func (w Window) Oldest() string {
	return slackTimestamp(w.Start)
}

// Latest returns the window end as a Slack timestamp.
func (w Window) Latest() string {
	return slackTimestamp(w.End)
}

// String renders the window in local time, e.g. "2024-01-01 00:00 - 2024-01-31 00:00 (UTC+9)".
func (w Window) String() string {
	return fmt.Sprintf("%s - %s (%s)",
		Local(w.Start).Format(DateTimeLayout),
		Local(w.End).Format(DateTimeLayout),
		Zone.String())
}

func slackTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%06d", t.Unix(), t.Nanosecond()/int(time.Microsecond))
}
