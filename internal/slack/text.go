package slack

import (
	"regexp"
	"strings"
)

var (
	// <https://example.com|label>, <mailto:a@b.c|a@b.c>
	reLabeledLink = regexp.MustCompile(`<((?:https?|mailto):[^|>]+)\|([^>]+)>`)
	// <https://example.com>
	reBareLink = regexp.MustCompile(`<((?:https?|mailto):[^|>]+)>`)
	// <#C123|general>
	reChannelRef = regexp.MustCompile(`<#[A-Z0-9]+\|([^>]+)>`)
	// <!here>, <!channel>, <!everyone>
	reSpecial = regexp.MustCompile(`<!(here|channel|everyone)(?:\|[^>]*)?>`)
)

// cleanText turns Slack's message markup into readable text. User mentions
// (<@U123>) are left as they are.
func cleanText(text string) string {
	if text == "" {
		return ""
	}

	s := text
	s = reLabeledLink.ReplaceAllString(s, "$2 ($1)")
	s = reBareLink.ReplaceAllString(s, "$1")
	s = reChannelRef.ReplaceAllString(s, "#$1")
	s = reSpecial.ReplaceAllString(s, "@$1")

	// Slack escapes only these three
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")

	return s
}
