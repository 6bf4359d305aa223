// Package htmlsanitize cleans rich-text fragments produced by the bulletin editor.
package htmlsanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Policy returns the shared UGC policy extended with the formatting the editor emits.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("u", "s", "sub", "sup", "mark", "br", "hr")
		p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements(
			"p", "span", "div", "h1", "h2", "h3", "h4", "h5", "h6", "table", "tr", "td", "th", "ul", "ol", "li",
		)
		p.AllowAttrs("colspan", "rowspan").Matching(bluemonday.Integer).OnElements("td", "th")
		p.AllowStyles("text-align").MatchingEnum("left", "center", "right", "justify").OnElements("p", "h1", "h2", "h3", "h4")
		p.RequireNoFollowOnLinks(true)
		p.AddTargetBlankToFullyQualifiedLinks(true)
		policy = p
	})
	return policy
}

// Sanitize strips scripts, event handlers and unsafe URLs from an HTML fragment.
func Sanitize(input string) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	return Policy().Sanitize(input)
}

// Text removes all markup, leaving plain text suitable for titles and exports.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(bluemonday.StrictPolicy().Sanitize(input))
}
