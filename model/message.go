package model

import (
	"strings"
	"time"
)

// Metadata is everything the renamer needs from a single message file,
// produced by one parsing pass.
type Metadata struct {
	Sender      Field[string]
	Subject     Field[string]
	SentAt      Field[time.Time]
	Body        Field[string]
	Recipients  Field[string]
	Attachments Field[[]string]
}

// FailedMetadata marks every field as Failed with the same cause, used when
// the file itself cannot be opened or decoded.
func FailedMetadata(kind ErrorKind, err error) Metadata {
	return Metadata{
		Sender:      Failed[string](kind, err),
		Subject:     Failed[string](kind, err),
		SentAt:      Failed[time.Time](kind, err),
		Body:        Failed[string](kind, err),
		Recipients:  Failed[string](kind, err),
		Attachments: Failed[[]string](kind, err),
	}
}

// Err returns the first field error, if any.
func (m Metadata) Err() error {
	for _, err := range []error{m.Sender.Err(), m.Subject.Err(), m.SentAt.Err(), m.Body.Err(), m.Recipients.Err(), m.Attachments.Err()} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Status renders the per-field states for the log row, e.g.
// "sender=present subject=missing date=present".
func (m Metadata) Status() string {
	parts := []string{
		"sender=" + m.Sender.String(),
		"subject=" + m.Subject.String(),
		"date=" + m.SentAt.String(),
		"body=" + m.Body.String(),
		"attachments=" + m.Attachments.String(),
	}
	return strings.Join(parts, " ")
}
