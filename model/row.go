package model

// LogRow is the structured record written for every processed file. The
// column order of Columns and Values is the order used by tabular sinks.
type LogRow struct {
	RunID              string `json:"run_id" db:"run_id"`
	Seq                int    `json:"seq" db:"seq"`
	ProcessedAt        string `json:"processed_at" db:"processed_at"`
	DryRun             bool   `json:"dry_run" db:"dry_run"`
	Directory          string `json:"directory" db:"directory"`
	OriginalFilename   string `json:"original_filename" db:"original_filename"`
	OldPath            string `json:"old_path" db:"old_path"`
	OldPathLength      int    `json:"old_path_length" db:"old_path_length"`
	Access             string `json:"access" db:"access"`
	MetadataStatus     string `json:"metadata_status" db:"metadata_status"`
	SentAt             string `json:"sent_at" db:"sent_at"`
	FormattedTimestamp string `json:"formatted_timestamp" db:"formatted_timestamp"`
	SenderRaw          string `json:"sender_raw" db:"sender_raw"`
	SenderName         string `json:"sender_name" db:"sender_name"`
	SenderEmail        string `json:"sender_email" db:"sender_email"`
	HasSenderEmail     bool   `json:"has_sender_email" db:"has_sender_email"`
	SenderSource       string `json:"sender_source" db:"sender_source"`
	Subject            string `json:"subject" db:"subject"`
	SanitizedSubject   string `json:"sanitized_subject" db:"sanitized_subject"`
	FullFilename       string `json:"full_filename" db:"full_filename"`
	NewFilename        string `json:"new_filename" db:"new_filename"`
	NewPath            string `json:"new_path" db:"new_path"`
	NewPathLength      int    `json:"new_path_length" db:"new_path_length"`
	IsTruncated        bool   `json:"is_truncated" db:"is_truncated"`
	OverBudget         bool   `json:"over_budget" db:"over_budget"`
	Outcome            string `json:"outcome" db:"outcome"`
	Unchanged          bool   `json:"unchanged" db:"unchanged"`
	Duplicate          bool   `json:"duplicate" db:"duplicate"`
	DuplicateDeleted   bool   `json:"duplicate_deleted" db:"duplicate_deleted"`
	Attempts           int    `json:"attempts" db:"attempts"`
	Dates              string `json:"dates" db:"dates"`
	PDF                string `json:"pdf" db:"pdf"`
	Error              string `json:"error" db:"error"`
}

// Columns returns the header row for tabular sinks.
func Columns() []string {
	return []string{
		"run_id", "seq", "processed_at", "dry_run",
		"directory", "original_filename", "old_path", "old_path_length",
		"access", "metadata_status",
		"sent_at", "formatted_timestamp",
		"sender_raw", "sender_name", "sender_email", "has_sender_email", "sender_source",
		"subject", "sanitized_subject",
		"full_filename", "new_filename", "new_path", "new_path_length",
		"is_truncated", "over_budget",
		"outcome", "unchanged", "duplicate", "duplicate_deleted", "attempts",
		"dates", "pdf", "error",
	}
}

// Values returns the row in Columns order.
func (r LogRow) Values() []any {
	return []any{
		r.RunID, r.Seq, r.ProcessedAt, r.DryRun,
		r.Directory, r.OriginalFilename, r.OldPath, r.OldPathLength,
		r.Access, r.MetadataStatus,
		r.SentAt, r.FormattedTimestamp,
		r.SenderRaw, r.SenderName, r.SenderEmail, r.HasSenderEmail, r.SenderSource,
		r.Subject, r.SanitizedSubject,
		r.FullFilename, r.NewFilename, r.NewPath, r.NewPathLength,
		r.IsTruncated, r.OverBudget,
		r.Outcome, r.Unchanged, r.Duplicate, r.DuplicateDeleted, r.Attempts,
		r.Dates, r.PDF, r.Error,
	}
}
