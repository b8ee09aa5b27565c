//go:build !windows

package rename

import "time"

func setCreationTime(string, time.Time) error {
	return ErrCreationTimeUnsupported
}
