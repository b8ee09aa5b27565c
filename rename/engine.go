// Package rename applies planned filenames to the filesystem and classifies
// every attempt as exactly one model.RenameOutcome.
package rename

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/dhcgn/msg-file-renamer/model"
)

// Result is the terminal state of one rename decision.
type Result struct {
	Outcome model.RenameOutcome
	// Applied is false when the decision was only computed (dry-run or
	// nothing to do).
	Applied  bool
	Attempts int
	Err      error
}

// Engine decides and, unless in dry-run, performs one rename per call.
type Engine struct {
	fs     afero.Fs
	policy RetryPolicy
	dryRun bool
	logger *slog.Logger
}

// NewEngine wraps fsys so that renames never replace an existing target.
func NewEngine(fsys afero.Fs, policy RetryPolicy, dryRun bool, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		fs:     NewNoReplaceFs(fsys),
		policy: policy,
		dryRun: dryRun,
		logger: logger,
	}
}

// Apply moves oldPath to newPath. A target that already exists marks
// oldPath as a duplicate, and outside dry-run oldPath is deleted while the
// existing target is left untouched. Apply never returns an error; failures
// are carried in Result.
func (e *Engine) Apply(ctx context.Context, oldPath, newPath string) Result {
	if oldPath == newPath {
		return Result{Outcome: model.OutcomeUnchanged}
	}

	if e.targetExists(oldPath, newPath) {
		return e.handleDuplicate(oldPath, newPath)
	}

	if e.dryRun {
		return Result{Outcome: model.OutcomeRenamed}
	}

	attempts, err := e.policy.Do(ctx, func(context.Context) error {
		return e.fs.Rename(oldPath, newPath)
	})
	switch {
	case err == nil:
		return Result{Outcome: model.OutcomeRenamed, Applied: true, Attempts: attempts}
	case errors.Is(err, fs.ErrExist):
		// The target appeared between the existence check and the rename.
		e.logger.Warn("rename target appeared concurrently", "old", oldPath, "new", newPath)
		return Result{Outcome: model.OutcomeDuplicateDetected, Attempts: attempts, Err: err}
	default:
		e.logger.Warn("rename failed", "old", oldPath, "new", newPath, "attempts", attempts, "error", err)
		return Result{Outcome: model.OutcomeRenameFailed, Attempts: attempts, Err: err}
	}
}

func (e *Engine) handleDuplicate(oldPath, newPath string) Result {
	if e.dryRun {
		return Result{Outcome: model.OutcomeDuplicateDetected}
	}

	e.logger.Debug("duplicate detected, deleting source", "old", oldPath, "existing", newPath)
	if err := e.fs.Remove(oldPath); err != nil {
		e.logger.Warn("could not delete duplicate", "path", oldPath, "error", err)
		return Result{Outcome: model.OutcomeDuplicateDeleteFailed, Attempts: 1, Err: err}
	}
	return Result{Outcome: model.OutcomeDuplicateDeleted, Applied: true, Attempts: 1}
}

// targetExists reports whether newPath names a different file than oldPath.
// On case-insensitive filesystems a case-only rename resolves both paths to
// the same file, which is not a duplicate.
func (e *Engine) targetExists(oldPath, newPath string) bool {
	newInfo, err := e.fs.Stat(newPath)
	if err != nil {
		return false
	}
	if oldInfo, err := e.fs.Stat(oldPath); err == nil && os.SameFile(oldInfo, newInfo) {
		return false
	}
	return true
}
