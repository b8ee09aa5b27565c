package pdf

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// Outlook plain-text bodies double every line break and pad empty lines
// with a space. Longer runs first.
var paddedBreaks = []struct{ old, new string }{
	{"\r\n\r\n \r\n\r\n \r\n\r\n  \r\n\r\n  \r\n\r\n", "\n\n\n"},
	{"\r\n\r\n \r\n\r\n \r\n\r\n  \r\n\r\n", "\n\n"},
	{"\r\n\r\n \r\n\r\n \r\n\r\n", "\n\n"},
	{"\r\n\r\n \r\n\r\n", "\n\n"},
	{"\r\n\r\n", "\n"},
}

var (
	trailingBlanks = regexp.MustCompile(`[ \t]+\n`)
	leadingBlanks  = regexp.MustCompile(`\n[ \t]+`)
	blankRuns      = regexp.MustCompile(`(\n\s*){3,}`)
	closingPhrase  = regexp.MustCompile(`([^\n])\n((?:Mit freundlichen|Viele|Herzliche|Beste|Mit besten|Mit herzlichen) Grüßen?|(?:Best|Kind) regards)`)
)

// CleanText compacts a plain-text body for printing. At most one empty line
// survives in a row and closing phrases get a blank line before them.
func CleanText(text string) string {
	text = html.UnescapeString(text)
	text = strings.ReplaceAll(text, "\t", " ")

	for _, r := range paddedBreaks {
		text = strings.ReplaceAll(text, r.old, r.new)
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = trailingBlanks.ReplaceAllString(text, "\n")
	text = leadingBlanks.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	text = strings.Map(func(r rune) rune {
		if r == '\n' || unicode.IsPrint(r) {
			return r
		}
		return -1
	}, text)

	text = closingPhrase.ReplaceAllString(text, "$1\n\n$2")
	return strings.TrimSpace(text)
}
