package export

import (
	"regexp"
	"strings"
)

var (
	breakTagRe = regexp.MustCompile(`(?i)<\s*(?:br|p)\s*/?\s*>`)
	knownTagRe = regexp.MustCompile(`(?i)<\s*/?\s*(?:p|br|b|i|u|em|strong|span|sub|sup|div|abbr|a)(?:\s[^<>]*)?/?\s*>`)
	blankRunRe = regexp.MustCompile(`\n{3,}`)

	entities = strings.NewReplacer(
		"&#38;", "&",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", nbsp,
	)
)

// stripMarkup removes the small tag set used in footnote and condition
// text and unescapes known entities. Paragraph and line-break tags become
// newlines; unknown tags are left as text.
func stripMarkup(s string) string {
	if s == "" {
		return s
	}
	s = breakTagRe.ReplaceAllString(s, "\n")
	s = knownTagRe.ReplaceAllString(s, "")
	s = entities.Replace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
