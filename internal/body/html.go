package body

import (
	"regexp"
	"strings"
)

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	blockBreakRe  = regexp.MustCompile(`(?i)<(/p|/div|/tr|/li|/h[1-6]|br\s*/?)>`)
	tagRe         = regexp.MustCompile(`<[^>]*>`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

var htmlEntities = strings.NewReplacer(
	"&nbsp;", " ",
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
)

// StripTags downgrades HTML to plain text for clients that only accept
// Type 1. Block-level closers become line breaks; script and style
// contents are dropped entirely.
func StripTags(html string) string {
	s := scriptStyleRe.ReplaceAllString(html, "")
	s = blockBreakRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = htmlEntities.Replace(s)
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
