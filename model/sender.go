package model

// SenderSource records where a resolved sender email came from.
type SenderSource string

const (
	SenderSourceNone     SenderSource = "none"
	SenderSourceEmbedded SenderSource = "embedded"
	SenderSourceTable    SenderSource = "table"
)

// ResolvedSender is the normalized sender of a message.
// HasEmail is always Email != "".
type ResolvedSender struct {
	Name     string
	Email    string
	HasEmail bool
	Source   SenderSource
}

// KnownSender is one row of the known-senders table.
type KnownSender struct {
	Name  string
	Email string
}

// KnownSenders is the ordered, read-only lookup table loaded once per batch.
type KnownSenders []KnownSender
