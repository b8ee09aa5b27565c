package rename

import (
	"errors"
	"time"

	"github.com/spf13/afero"
)

// ErrCreationTimeUnsupported is returned where the platform or filesystem
// has no settable creation time.
var ErrCreationTimeUnsupported = errors.New("setting creation time is not supported on this platform")

// DateResult records both timestamp updates separately; one may fail while
// the other succeeds.
type DateResult struct {
	CreationErr     error
	ModificationErr error
}

// CreationSet reports a successful creation time update.
func (d DateResult) CreationSet() bool { return d.CreationErr == nil }

// CreationUnsupported reports that the creation time was not attempted.
func (d DateResult) CreationUnsupported() bool {
	return errors.Is(d.CreationErr, ErrCreationTimeUnsupported)
}

// ModificationSet reports a successful access/modification time update.
func (d DateResult) ModificationSet() bool { return d.ModificationErr == nil }

func (d DateResult) String() string {
	status := func(err error) string {
		switch {
		case err == nil:
			return "set"
		case errors.Is(err, ErrCreationTimeUnsupported):
			return "unsupported"
		default:
			return "failed"
		}
	}
	return "created=" + status(d.CreationErr) + " modified=" + status(d.ModificationErr)
}

// SetFileTimes stamps path with sentAt. sentAt is a wall clock reading
// without zone and is interpreted in the local zone.
func SetFileTimes(fsys afero.Fs, path string, sentAt time.Time) DateResult {
	t := LocalClock(sentAt)

	var res DateResult
	if _, ok := unwrapFs(fsys).(*afero.OsFs); ok {
		res.CreationErr = setCreationTime(path, t)
	} else {
		res.CreationErr = ErrCreationTimeUnsupported
	}
	res.ModificationErr = fsys.Chtimes(path, t, t)
	return res
}

// LocalClock reinterprets the wall clock of t in the local zone.
func LocalClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}

func unwrapFs(fsys afero.Fs) afero.Fs {
	if n, ok := fsys.(*NoReplaceFs); ok {
		return n.Fs
	}
	return fsys
}
