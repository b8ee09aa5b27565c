package naming

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dhcgn/msg-file-renamer/model"
)

// TimestampLayout renders a send time as e.g. 20240305-14uhr30.
const TimestampLayout = "20060102-15uhr04"

// Extension is appended to every composed filename.
const Extension = ".msg"

// Composer builds filename plans against a fixed path budget.
type Composer struct {
	maxPathLength int
	marker        string
}

// NewComposer validates the truncation parameters once so Compose cannot
// fail afterwards.
func NewComposer(maxPathLength int, marker string) (*Composer, error) {
	if err := ValidateTruncation(maxPathLength, marker); err != nil {
		return nil, err
	}
	return &Composer{maxPathLength: maxPathLength, marker: marker}, nil
}

// Compose derives the canonical filename for a message stored in dir.
// Missing parts become empty segments, so a message with no usable
// metadata yields "__.msg".
func (c *Composer) Compose(sentAt model.Field[time.Time], sender model.ResolvedSender, subject model.Field[string], dir string) model.FilenamePlan {
	plan := model.FilenamePlan{SenderEmail: sender.Email}

	if t, ok := sentAt.Get(); ok {
		plan.SentAt = Naive(t)
		plan.HasSentAt = true
		plan.FormattedTimestamp = plan.SentAt.Format(TimestampLayout)
	}

	plan.Subject = subject.OrZero()
	plan.SanitizedSubject = Sanitize(plan.Subject)

	plan.FullFilename = fmt.Sprintf("%s_%s_%s%s", plan.FormattedTimestamp, plan.SenderEmail, plan.SanitizedSubject, Extension)
	plan.FullPath = filepath.Join(dir, plan.FullFilename)

	// Parameters were validated in NewComposer.
	tr, _ := Truncate(dir, plan.FullFilename, c.maxPathLength, c.marker)
	plan.TruncatedFilename = tr.Filename
	plan.TruncatedPath = tr.Path
	plan.IsTruncated = tr.Truncated
	plan.OverBudget = tr.OverBudget
	return plan
}

// Naive converts t to the local zone and drops the offset, leaving the
// local wall clock reading.
func Naive(t time.Time) time.Time {
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
