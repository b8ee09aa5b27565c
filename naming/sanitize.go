// Package naming turns message metadata into canonical, filesystem-safe,
// length-bounded filenames.
package naming

import (
	"strings"
	"unicode"
)

// contextReplacements run before the per-character pass because they
// depend on the surrounding spaces.
var contextReplacements = []struct{ old, new string }{
	{" - ", "-"},
	{". ", "_"},
	{" / ", "_"},
	{": ", "-_"},
	{" #", "_"},
	{" & ", "_"},
}

var charReplacements = map[rune]string{
	// filesystem-reserved
	'\\': "_",
	'/':  "_",
	':':  "",
	'*':  "-",
	'?':  "",
	'"':  "",
	'<':  "-",
	'>':  "-",
	'|':  "_",

	' ': "_",
	'#': "_",
	'%': "_",
	'&': "_",
	',': "",
	'!': "",

	'\'':     "_",
	'\u201e': "", // low double quote
	'\u201c': "",
	'\u201d': "",

	'ä': "ae",
	'ö': "oe",
	'ü': "ue",
	'Ä': "Ae",
	'Ö': "Oe",
	'Ü': "Ue",
	'ß': "ss",
	'é': "e",
}

// Sanitize maps arbitrary text (usually a subject line) onto a string that
// is safe as a filename component. Already-safe text is returned unchanged.
func Sanitize(text string) string {
	text = collapseWhitespace(text)

	for _, r := range contextReplacements {
		text = strings.ReplaceAll(text, r.old, r.new)
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if repl, ok := charReplacements[r]; ok {
			b.WriteString(repl)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func collapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	inSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}
