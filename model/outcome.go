package model

// RenameOutcome is the terminal classification of one file.
type RenameOutcome string

const (
	OutcomeUnchanged             RenameOutcome = "unchanged"
	OutcomeRenamed               RenameOutcome = "renamed"
	OutcomeDuplicateDetected     RenameOutcome = "duplicate_detected"
	OutcomeDuplicateDeleted      RenameOutcome = "duplicate_deleted"
	OutcomeDuplicateDeleteFailed RenameOutcome = "duplicate_delete_failed"
	OutcomeRenameFailed          RenameOutcome = "rename_failed"
	OutcomeAccessDenied          RenameOutcome = "access_denied"
)

// IsDuplicate reports whether the target already existed.
func (o RenameOutcome) IsDuplicate() bool {
	switch o {
	case OutcomeDuplicateDetected, OutcomeDuplicateDeleted, OutcomeDuplicateDeleteFailed:
		return true
	}
	return false
}

// AtTarget reports whether the message now lives at its canonical path.
func (o RenameOutcome) AtTarget() bool {
	return o == OutcomeRenamed || o == OutcomeUnchanged
}

// IsProblem reports outcomes that count as problems in the summary.
func (o RenameOutcome) IsProblem() bool {
	switch o {
	case OutcomeRenameFailed, OutcomeAccessDenied, OutcomeDuplicateDeleteFailed:
		return true
	}
	return false
}
