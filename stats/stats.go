package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/dhcgn/msg-file-renamer/model"
)

type EventType string

const (
	EventTypeScanned   EventType = "scanned"
	EventTypeRenamed   EventType = "renamed"
	EventTypeUnchanged EventType = "unchanged"
	EventTypeDuplicate EventType = "duplicate"
	EventTypeProblem   EventType = "problem"
)

// Event describes the result of one processed file.
type Event struct {
	Type EventType
	Path string
	Err  error
}

// EventFor maps a rename outcome onto the event reported to observers.
func EventFor(o model.RenameOutcome) EventType {
	switch {
	case o.IsProblem():
		return EventTypeProblem
	case o.IsDuplicate():
		return EventTypeDuplicate
	case o == model.OutcomeUnchanged:
		return EventTypeUnchanged
	default:
		return EventTypeRenamed
	}
}

// Counters aggregates one batch. It is owned by the batch loop and only
// read once the walk is done.
type Counters struct {
	Found                 int
	Renamed               int
	Unchanged             int
	Truncated             int
	OverBudget            int
	Degraded              int
	DuplicatesFound       int
	DuplicatesDeleted     int
	DuplicateDeleteFailed int
	RenameFailed          int
	AccessDenied          int
	Problems              int
	CreationDateSet       int
	CreationDateFailed    int
	ModDateSet            int
	ModDateFailed         int
	PDFGenerated          int
	PDFSkipped            int
	PDFFailed             int
	LogErrors             int
	LastError             error
}

// RecordOutcome counts one terminal rename outcome.
func (c *Counters) RecordOutcome(o model.RenameOutcome, err error) {
	switch o {
	case model.OutcomeRenamed:
		c.Renamed++
	case model.OutcomeUnchanged:
		c.Unchanged++
	case model.OutcomeDuplicateDeleted:
		c.DuplicatesDeleted++
	case model.OutcomeDuplicateDeleteFailed:
		c.DuplicateDeleteFailed++
	case model.OutcomeRenameFailed:
		c.RenameFailed++
	case model.OutcomeAccessDenied:
		c.AccessDenied++
	}
	if o.IsDuplicate() {
		c.DuplicatesFound++
	}
	if o.IsProblem() {
		c.Problems++
	}
	if err != nil {
		c.LastError = err
	}
}

func (c Counters) LogAttrs() []any {
	attrs := []any{
		"found", c.Found,
		"renamed", c.Renamed,
		"unchanged", c.Unchanged,
		"truncated", c.Truncated,
		"overBudget", c.OverBudget,
		"degraded", c.Degraded,
		"duplicatesFound", c.DuplicatesFound,
		"duplicatesDeleted", c.DuplicatesDeleted,
		"duplicateDeleteFailed", c.DuplicateDeleteFailed,
		"renameFailed", c.RenameFailed,
		"accessDenied", c.AccessDenied,
		"problems", c.Problems,
		"creationDateSet", c.CreationDateSet,
		"creationDateFailed", c.CreationDateFailed,
		"modDateSet", c.ModDateSet,
		"modDateFailed", c.ModDateFailed,
		"pdfGenerated", c.PDFGenerated,
		"pdfSkipped", c.PDFSkipped,
		"pdfFailed", c.PDFFailed,
		"logErrors", c.LogErrors,
	}
	if c.LastError != nil {
		attrs = append(attrs, "lastError", c.LastError.Error())
	}
	return attrs
}

// Rows returns label/value pairs in display order for summary tables.
func (c Counters) Rows() [][2]string {
	attrs := c.LogAttrs()
	rows := make([][2]string, 0, len(attrs)/2)
	for i := 0; i+1 < len(attrs); i += 2 {
		rows = append(rows, [2]string{fmt.Sprint(attrs[i]), fmt.Sprint(attrs[i+1])})
	}
	return rows
}

type Pair struct {
	Key   string
	Value int
}

// Top returns the limit most frequent entries of m, ties ordered by key.
func Top(m map[string]int, limit int) []Pair {
	pairs := make([]Pair, 0, len(m))
	for k, v := range m {
		pairs = append(pairs, Pair{k, v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Value != pairs[j].Value {
			return pairs[i].Value > pairs[j].Value
		}
		return pairs[i].Key < pairs[j].Key
	})

	if limit >= 0 && len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}

// PrettyPrintTop prints the top N most frequent items in a map.
func PrettyPrintTop(w io.Writer, m map[string]int, limit int) {
	for i, p := range Top(m, limit) {
		fmt.Fprintf(w, "%d. %s (%d)\n", i+1, p.Key, p.Value)
	}
}
