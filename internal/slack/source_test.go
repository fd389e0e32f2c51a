package slack

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/matillion/slack-export/internal/export"
	"github.com/matillion/slack-export/internal/timewindow"
)

func januaryWindow(t *testing.T) timewindow.Window {
	t.Helper()
	w, err := timewindow.Parse("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return w
}

func TestSource_HistoryQueryAndConversion(t *testing.T) {
	mock := newMockSlackServer()
	defer mock.close()

	var gotOldest, gotLatest, gotCursor string
	mock.addHandler("/conversations.history", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotOldest = r.FormValue("oldest")
		gotLatest = r.FormValue("latest")
		gotCursor = r.FormValue("cursor")
		writeJSON(w, map[string]any{
			"ok": true,
			"messages": []map[string]any{
				// exactly at the window end: excluded
				{"type": "message", "user": "U1", "text": "too late", "ts": "1706626800.000000"},
				{"type": "message", "user": "U1", "text": "fish &amp; chips", "ts": "1704067200.000100", "thread_ts": "1704067200.000100"},
				{"type": "message", "bot_id": "B1", "text": "beep", "ts": "1704067100.000100"},
			},
			"has_more":          true,
			"response_metadata": map[string]any{"next_cursor": "next-page"},
		})
	})

	client, _, outputDir := newTestClient(t, mock)
	defer os.RemoveAll(outputDir)

	page, err := client.Source().History(context.Background(), export.HistoryQuery{
		ChannelID: "C123456789",
		Window:    januaryWindow(t),
		Limit:     200,
		Cursor:    "this-page",
	})
	if err != nil {
		t.Fatalf("History: %v", err)
	}

	if gotOldest != "1704034800.000000" || gotLatest != "1706626800.000000" {
		t.Errorf("bounds: got oldest=%q latest=%q", gotOldest, gotLatest)
	}
	if gotCursor != "this-page" {
		t.Errorf("cursor: got %q, want %q", gotCursor, "this-page")
	}
	if page.NextCursor != "next-page" {
		t.Errorf("next cursor: got %q, want %q", page.NextCursor, "next-page")
	}
	if len(page.Messages) != 2 {
		t.Fatalf("messages: got %d, want 2", len(page.Messages))
	}

	first := page.Messages[0]
	if first.Text != "fish & chips" {
		t.Errorf("text: got %q, want %q", first.Text, "fish & chips")
	}
	if !first.IsThreadRoot() {
		t.Error("expected first message to be a thread root")
	}
	if page.Messages[1].AuthorID != "B1" {
		t.Errorf("bot author: got %q, want %q", page.Messages[1].AuthorID, "B1")
	}
}

func TestSource_RepliesPages(t *testing.T) {
	mock := newMockSlackServer()
	defer mock.close()

	mock.addHandler("/conversations.replies", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.FormValue("ts") != "1704067200.000100" {
			writeJSON(w, map[string]any{"ok": false, "error": "thread_not_found"})
			return
		}
		if r.FormValue("cursor") == "" {
			writeJSON(w, map[string]any{
				"ok": true,
				"messages": []map[string]any{
					{"type": "message", "user": "U1", "text": "root", "ts": "1704067200.000100", "thread_ts": "1704067200.000100"},
					{"type": "message", "user": "U2", "text": "one", "ts": "1704067260.000200", "thread_ts": "1704067200.000100"},
				},
				"has_more":          true,
				"response_metadata": map[string]any{"next_cursor": "more"},
			})
			return
		}
		writeJSON(w, map[string]any{
			"ok": true,
			"messages": []map[string]any{
				{"type": "message", "user": "U2", "text": "two", "ts": "1704067320.000300", "thread_ts": "1704067200.000100"},
			},
			"has_more":          false,
			"response_metadata": map[string]any{"next_cursor": "stale"},
		})
	})

	client, _, outputDir := newTestClient(t, mock)
	defer os.RemoveAll(outputDir)

	q := export.RepliesQuery{ChannelID: "C123456789", RootID: "1704067200.000100", Limit: 1000}
	first, err := client.Source().Replies(context.Background(), q)
	if err != nil {
		t.Fatalf("Replies: %v", err)
	}
	if len(first.Messages) != 2 || first.Messages[0].Text != "root" {
		t.Errorf("first page: got %+v", first.Messages)
	}
	if first.NextCursor != "more" {
		t.Errorf("next cursor: got %q, want %q", first.NextCursor, "more")
	}

	q.Cursor = first.NextCursor
	second, err := client.Source().Replies(context.Background(), q)
	if err != nil {
		t.Fatalf("Replies: %v", err)
	}
	if len(second.Messages) != 1 || second.Messages[0].Text != "two" {
		t.Errorf("second page: got %+v", second.Messages)
	}
	if second.NextCursor != "" {
		t.Errorf("last page cursor: got %q, want empty", second.NextCursor)
	}
	if got := mock.callCount("/conversations.replies"); got != 2 {
		t.Errorf("replies calls: got %d, want 2", got)
	}
}

func TestSource_RepliesRateLimited(t *testing.T) {
	mock := newMockSlackServer()
	defer mock.close()

	mock.addHandler("/conversations.replies", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	client, _, outputDir := newTestClient(t, mock)
	defer os.RemoveAll(outputDir)

	_, err := client.Source().Replies(context.Background(), export.RepliesQuery{
		ChannelID: "C123456789",
		RootID:    "1704067200.000100",
		Limit:     1000,
	})

	var rl *export.RateLimitedError
	if !errors.As(err, &rl) {
		t.Fatalf("error: got %v, want *export.RateLimitedError", err)
	}
	if rl.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter: got %v, want 7s", rl.RetryAfter)
	}
}

func TestSource_UsersDisplayNames(t *testing.T) {
	mock := newMockSlackServer()
	defer mock.close()

	mock.addHandler("/users.list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"ok": true,
			"members": []map[string]any{
				{"id": "U1", "name": "alice", "real_name": "Alice Anderson", "profile": map[string]any{"display_name": "ally"}},
				{"id": "U2", "name": "bob", "real_name": "Bob Brown", "profile": map[string]any{"display_name": ""}},
				{"id": "U3", "name": "carol", "profile": map[string]any{}},
			},
			"response_metadata": map[string]any{"next_cursor": ""},
		})
	})

	client, _, outputDir := newTestClient(t, mock)
	defer os.RemoveAll(outputDir)

	dir, err := client.Source().Users(context.Background())
	if err != nil {
		t.Fatalf("Users: %v", err)
	}

	want := map[string]string{"U1": "ally", "U2": "Bob Brown", "U3": "carol"}
	for id, name := range want {
		if got := dir.Name(id); got != name {
			t.Errorf("Name(%q): got %q, want %q", id, got, name)
		}
	}
	if got := dir.Name("U404"); got != "U404" {
		t.Errorf("unknown user: got %q, want raw id", got)
	}
}

func TestSource_ChannelName(t *testing.T) {
	mock := newMockSlackServer()
	defer mock.close()

	mock.addHandler("/conversations.info", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.FormValue("channel") != "C123456789" {
			writeJSON(w, map[string]any{"ok": false, "error": "channel_not_found"})
			return
		}
		writeJSON(w, map[string]any{
			"ok":      true,
			"channel": map[string]any{"id": "C123456789", "name": "general"},
		})
	})

	client, _, outputDir := newTestClient(t, mock)
	defer os.RemoveAll(outputDir)

	name, err := client.Source().ChannelName(context.Background(), "C123456789")
	if err != nil {
		t.Fatalf("ChannelName: %v", err)
	}
	if name != "general" {
		t.Errorf("name: got %q, want %q", name, "general")
	}

	_, err = client.Source().ChannelName(context.Background(), "C999999999")
	if err == nil || export.FailureMessage(err) != export.FailureMessage(errors.New("channel_not_found")) {
		t.Errorf("expected channel_not_found, got %v", err)
	}
}

func TestSource_ChannelNameFromIndex(t *testing.T) {
	mock := newMockSlackServer()
	defer mock.close()

	mock.addHandler("/conversations.list", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"ok": true,
			"channels": []map[string]any{
				{"id": "C123456789", "name": "general", "name_normalized": "general"},
			},
			"response_metadata": map[string]any{"next_cursor": ""},
		})
	})
	mock.addHandler("/conversations.info", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"ok":      true,
			"channel": map[string]any{"id": "C123456789", "name": "renamed"},
		})
	})

	client, _, outputDir := newTestClient(t, mock)
	defer os.RemoveAll(outputDir)

	id, err := client.GetChannelID(context.Background(), "#general")
	if err != nil {
		t.Fatalf("GetChannelID: %v", err)
	}

	name, err := client.Source().ChannelName(context.Background(), id)
	if err != nil {
		t.Fatalf("ChannelName: %v", err)
	}
	if name != "general" {
		t.Errorf("name: got %q, want %q", name, "general")
	}
	if n := mock.callCount("/conversations.info"); n != 0 {
		t.Errorf("conversations.info calls: got %d, want 0", n)
	}
}
