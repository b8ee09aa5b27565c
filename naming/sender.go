package naming

import (
	"regexp"
	"strings"

	"github.com/dhcgn/msg-file-renamer/model"
)

var bracketedEmail = regexp.MustCompile(`<(.*?)>`)

// ParseSender splits a raw "Display Name <email>" string. Without a
// bracketed address the trimmed input becomes the name.
func ParseSender(raw string) model.ResolvedSender {
	var sender model.ResolvedSender

	if m := bracketedEmail.FindStringSubmatch(raw); m != nil {
		sender.Email = strings.TrimSpace(m[1])
	}

	name := bracketedEmail.ReplaceAllString(raw, "")
	name = strings.ReplaceAll(name, `"`, "")
	sender.Name = strings.TrimSpace(name)

	sender.HasEmail = sender.Email != ""
	if sender.HasEmail {
		sender.Source = model.SenderSourceEmbedded
	} else {
		sender.Source = model.SenderSourceNone
	}
	return sender
}

// Lookup returns the first entry whose name contains needle
// (case-sensitive), even when that entry has no email. An empty needle
// never matches.
func Lookup(known model.KnownSenders, needle string) (model.KnownSender, bool) {
	if needle == "" {
		return model.KnownSender{}, false
	}
	for _, entry := range known {
		if strings.Contains(entry.Name, needle) {
			return entry, true
		}
	}
	return model.KnownSender{}, false
}

// ResolveSender runs both resolution stages: the bracketed address in the
// raw sender, then the known-senders table.
func ResolveSender(raw model.Field[string], known model.KnownSenders) model.ResolvedSender {
	sender := model.ResolvedSender{Source: model.SenderSourceNone}
	if value, ok := raw.Get(); ok {
		sender = ParseSender(value)
	}
	if sender.HasEmail {
		return sender
	}

	if entry, ok := Lookup(known, sender.Name); ok {
		sender.Email = entry.Email
		sender.HasEmail = true
		sender.Source = model.SenderSourceTable
	}
	return sender
}
