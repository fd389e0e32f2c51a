package slack

import "testing"

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "empty input",
			text: "",
			want: "",
		},
		{
			name: "plain text",
			text: "Hello world",
			want: "Hello world",
		},
		{
			name: "escaped entities",
			text: "a &lt; b &amp;&amp; c &gt; d",
			want: "a < b && c > d",
		},
		{
			name: "double escaped stays single escaped",
			text: "&amp;lt;",
			want: "&lt;",
		},
		{
			name: "labeled link",
			text: "see <https://example.com/docs|the docs>",
			want: "see the docs (https://example.com/docs)",
		},
		{
			name: "bare link",
			text: "<https://example.com>",
			want: "https://example.com",
		},
		{
			name: "mailto link",
			text: "<mailto:ops@example.com|ops@example.com>",
			want: "ops@example.com (mailto:ops@example.com)",
		},
		{
			name: "channel reference",
			text: "moved to <#C123ABC|random>",
			want: "moved to #random",
		},
		{
			name: "special mention",
			text: "<!here> standup",
			want: "@here standup",
		},
		{
			name: "user mention untouched",
			text: "thanks <@U123ABC>",
			want: "thanks <@U123ABC>",
		},
		{
			name: "multi-line",
			text: "line one\nline two",
			want: "line one\nline two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanText(tt.text); got != tt.want {
				t.Errorf("cleanText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
