package mapper

import (
	"regexp"
	"strings"
)

var (
	tagPattern    = regexp.MustCompile(`(?s)<[^>]*>`)
	spacesPattern = regexp.MustCompile(`[ \t]+`)
	blanksPattern = regexp.MustCompile(`\n{3,}`)
)

// StripTags reduces structured markup to plain text: tags removed, basic
// entities resolved, runs of whitespace collapsed. Pure transformation,
// good enough for bill text and transcript bodies; this is not a general
// HTML parser and does not try to be.
func StripTags(markup string) string {
	text := tagPattern.ReplaceAllString(markup, " ")
	text = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
		"&nbsp;", " ",
		"&#160;", " ",
	).Replace(text)
	text = spacesPattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blanksPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
