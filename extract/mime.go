package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/dhcgn/msg-file-renamer/model"
)

var mboxFrom = []byte("From ")

// unwrapMbox returns the first message of an mbox-framed file, or data
// unchanged when it is a bare message.
func unwrapMbox(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, mboxFrom) {
		return data, nil
	}
	reader := mboxlib.NewReader(bytes.NewReader(data))
	msgReader, err := reader.NextMessage()
	if err != nil {
		return nil, fmt.Errorf("mbox: %w", err)
	}
	raw, err := io.ReadAll(msgReader)
	if err != nil {
		return nil, fmt.Errorf("mbox read: %w", err)
	}
	return raw, nil
}

func parseMIME(data []byte) (model.Metadata, error) {
	raw, err := unwrapMbox(data)
	if err != nil {
		return model.Metadata{}, err
	}

	// The entity is returned alongside an unknown transfer encoding error.
	entity, err := message.Read(bytes.NewReader(raw))
	if entity == nil || (err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err)) {
		return model.Metadata{}, fmt.Errorf("parse mail: %w", err)
	}
	mr := mail.NewReader(entity)
	defer mr.Close()

	if mr.Header.Len() == 0 {
		return model.Metadata{}, errors.New("no message headers")
	}

	meta := headerMetadata(mr.Header)
	if message.IsUnknownEncoding(err) {
		meta.Body = model.Failed[string](model.ErrorUnsupported, err)
		meta.Attachments = model.Failed[[]string](model.ErrorUnsupported, err)
		return meta, nil
	}

	body, attachments, err := readParts(mr)
	if err != nil {
		meta.Body = model.Failed[string](model.ErrorCorrupt, err)
		meta.Attachments = model.Failed[[]string](model.ErrorCorrupt, err)
		return meta, nil
	}
	meta.Body = textField(body, body != "")
	if len(attachments) > 0 {
		meta.Attachments = model.Present(attachments)
	}
	return meta, nil
}

// headerMetadata fills sender, subject, date and recipients from a header.
// It is shared with Outlook files that carry transport headers.
func headerMetadata(h mail.Header) model.Metadata {
	var meta model.Metadata

	if h.Has("From") {
		if addrs, err := h.AddressList("From"); err == nil && len(addrs) > 0 {
			meta.Sender = model.Present(formatSender(addrs[0].Name, addrs[0].Address))
		} else if text, err := h.Text("From"); err == nil && strings.TrimSpace(text) != "" {
			meta.Sender = model.Present(strings.TrimSpace(text))
		} else {
			meta.Sender = model.Failed[string](model.ErrorCorrupt, err)
		}
	}

	if h.Has("Subject") {
		if subject, err := h.Subject(); err == nil {
			meta.Subject = model.Present(subject)
		} else {
			meta.Subject = model.Failed[string](model.ErrorCorrupt, err)
		}
	}

	if h.Has("Date") {
		if date, err := h.Date(); err == nil {
			meta.SentAt = model.Present(date)
		} else {
			meta.SentAt = model.Failed[time.Time](model.ErrorCorrupt, err)
		}
	}

	if h.Has("To") {
		if to, err := h.Text("To"); err == nil {
			meta.Recipients = model.Present(to)
		}
	}

	return meta
}

func readParts(mr *mail.Reader) (string, []string, error) {
	var body string
	var attachments []string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return body, attachments, nil
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return body, attachments, err
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			if (ct != "" && ct != "text/plain") || body != "" {
				continue
			}
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return body, attachments, err
			}
			body = string(b)
		case *mail.AttachmentHeader:
			name, _ := h.Filename()
			if name == "" {
				name = "attachment"
			}
			attachments = append(attachments, name)
		}
	}
}
