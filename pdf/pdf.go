// Package pdf renders a compact printout of a message next to its file.
package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/spf13/afero"

	"github.com/dhcgn/msg-file-renamer/model"
)

const (
	DefaultMaxRecipients = 800
	DefaultMaxBody       = 6000

	lineHeight = 5
	fontFamily = "Helvetica"
)

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// Renderer writes <base>.pdf beside a message file.
type Renderer struct {
	fs            afero.Fs
	maxRecipients int
	maxBody       int
}

func New(fsys afero.Fs) *Renderer {
	return &Renderer{fs: fsys, maxRecipients: DefaultMaxRecipients, maxBody: DefaultMaxBody}
}

// PathFor returns the rendition path for a message: same directory and base
// name, .pdf extension.
func PathFor(msgPath string) string {
	return strings.TrimSuffix(msgPath, filepath.Ext(msgPath)) + ".pdf"
}

// Exists reports whether a rendition for msgPath is already present.
func (r *Renderer) Exists(msgPath string) bool {
	ok, err := afero.Exists(r.fs, PathFor(msgPath))
	return err == nil && ok
}

// Render writes the rendition of meta for the message at msgPath and returns
// its path. An existing rendition is replaced.
func (r *Renderer) Render(msgPath string, meta model.Metadata) (string, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle(tr(meta.Subject.OrZero()), false)
	doc.AddPage()

	write := func(style string, size float64, text string) {
		doc.SetFont(fontFamily, style, size)
		doc.Write(lineHeight, tr(text))
	}
	field := func(label, value string) {
		write("B", 8, label+": ")
		write("", 8, value+"\n")
	}

	write("", 5, fmt.Sprintf("This printout may be shortened (max %d characters) and tables may not render correctly. The complete message is in the .msg file of the same name.\n", r.maxBody))

	if t, ok := meta.SentAt.Get(); ok {
		field("Sent", t.Format(time.DateTime))
	}
	if sender, ok := meta.Sender.Get(); ok {
		field("Sender", sender)
	}
	if to, ok := meta.Recipients.Get(); ok {
		field("Recipients", r.recipients(to))
	}
	if subject, ok := meta.Subject.Get(); ok {
		field("Subject", subject)
	}

	write("B", 10, "\nBody:\n")
	if body, ok := meta.Body.Get(); ok {
		write("", 8, r.body(body))
	} else {
		write("", 8, "\nNOTE: the message has no readable body (for example a signed or encrypted message).")
	}

	if names, ok := meta.Attachments.Get(); ok && len(names) > 0 {
		write("B", 8, "\n\nAttachments:\n")
		for _, name := range names {
			write("", 8, "- "+name+"\n")
		}
	}

	if err := doc.Error(); err != nil {
		return "", fmt.Errorf("render pdf: %w", err)
	}

	out := PathFor(msgPath)
	file, err := r.fs.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create pdf %s: %w", out, err)
	}
	if err := doc.Output(file); err != nil {
		file.Close()
		return "", fmt.Errorf("write pdf %s: %w", out, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close pdf %s: %w", out, err)
	}
	return out, nil
}

func (r *Renderer) recipients(raw string) string {
	list := strings.Join(emailPattern.FindAllString(raw, -1), ", ")
	if list == "" {
		list = strings.TrimSpace(raw)
	}
	if cut, ok := cutRunes(list, r.maxRecipients); ok {
		list = cut + " <shortened>"
	}
	return list
}

func (r *Renderer) body(raw string) string {
	text := CleanText(raw)
	if cut, ok := cutRunes(text, r.maxBody); ok {
		text = cut + fmt.Sprintf("\n<NOTE: MESSAGE SHORTENED TO %d CHARACTERS, SEE THE .MSG FILE FOR THE FULL TEXT>", r.maxBody)
	}
	return text
}

func cutRunes(s string, limit int) (string, bool) {
	runes := []rune(s)
	if len(runes) <= limit {
		return s, false
	}
	return string(runes[:limit]), true
}
