package scraper

import (
	"regexp"
	"strings"
)

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockPattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	blockTagPattern    = regexp.MustCompile(`(?i)</?(p|div|br|h[1-6]|li|tr)[^>]*>`)
	anyTagPattern      = regexp.MustCompile(`<[^>]+>`)
	// Whitespace here is Unicode-wide, so ideographic spaces between newlines collapse too.
	blankLinesPattern = regexp.MustCompile(`\n[\s\v\x{1c}-\x{1f}\x{85}\p{Z}]*\n`)

	// Single pass, so "&amp;lt;" becomes "&lt;" and not "<".
	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"\u00a0", " ",
	)
)

type SimpleNormalizer struct{}

func NewSimpleNormalizer() *SimpleNormalizer {
	return &SimpleNormalizer{}
}

func (n *SimpleNormalizer) Normalize(htmlContent string) (string, error) {
	return HTMLToText(htmlContent), nil
}

// HTMLToText turns a markup fragment into plain text. Block-level tags become
// line breaks, other tags are dropped, a fixed set of entities is decoded and
// blank lines are collapsed so at most one separates paragraphs.
func HTMLToText(markup string) string {
	if markup == "" {
		return ""
	}

	text := scriptBlockPattern.ReplaceAllString(markup, "")
	text = styleBlockPattern.ReplaceAllString(text, "")
	text = blockTagPattern.ReplaceAllString(text, "\n")
	text = anyTagPattern.ReplaceAllString(text, "")
	text = entityReplacer.Replace(text)
	text = blankLinesPattern.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
