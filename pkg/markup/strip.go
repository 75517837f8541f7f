// Package markup reduces untrusted HTML fragments to plain text.
package markup

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxPasses bounds the strip/unescape loop. Each pass removes one level of entity encoding.
const maxPasses = 8

var strict = bluemonday.StrictPolicy()

// Strip removes every tag from s and returns unescaped text. Entity-encoded tags such as
// &lt;script&gt; are decoded and stripped as well, so the result never contains markup.
func Strip(s string) string {
	text := s
	for i := 0; i < maxPasses; i++ {
		next := pass(text)
		if next == text {
			return text
		}
		text = next
	}

	// Still changing after maxPasses: drop the angle brackets rather than store a tag
	if pass(text) != text {
		return strings.NewReplacer("<", "", ">", "").Replace(text)
	}
	return text
}

// PlainText is Strip with whitespace runs collapsed to single spaces
func PlainText(s string) string {
	return strings.Join(strings.Fields(Strip(s)), " ")
}

func pass(s string) string {
	return html.UnescapeString(strict.Sanitize(s))
}
