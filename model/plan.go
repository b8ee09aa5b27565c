package model

import "time"

// FilenamePlan holds every intermediate value of one filename computation.
type FilenamePlan struct {
	SentAt             time.Time
	HasSentAt          bool
	FormattedTimestamp string
	SenderEmail        string
	Subject            string
	SanitizedSubject   string
	FullFilename       string
	FullPath           string
	TruncatedFilename  string
	TruncatedPath      string
	IsTruncated        bool
	// OverBudget is set when the path still exceeds the limit after
	// truncation because the directory alone leaves no room.
	OverBudget bool
}

// Target returns the path the file should be renamed to.
func (p FilenamePlan) Target(truncate bool) string {
	if truncate {
		return p.TruncatedPath
	}
	return p.FullPath
}
