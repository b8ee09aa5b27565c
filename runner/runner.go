// Package runner drives a rename batch: it discovers message files and
// takes each one through extraction, naming, renaming and the optional
// date and PDF steps before recording a report row.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"

	"github.com/dhcgn/msg-file-renamer/config"
	"github.com/dhcgn/msg-file-renamer/extract"
	"github.com/dhcgn/msg-file-renamer/filter"
	"github.com/dhcgn/msg-file-renamer/model"
	"github.com/dhcgn/msg-file-renamer/naming"
	"github.com/dhcgn/msg-file-renamer/pdf"
	"github.com/dhcgn/msg-file-renamer/rename"
	"github.com/dhcgn/msg-file-renamer/sink"
	"github.com/dhcgn/msg-file-renamer/stats"
)

// Options carries the collaborators a batch is built from.
type Options struct {
	Fs           afero.Fs
	Sink         sink.Sink
	KnownSenders model.KnownSenders
	RunID        string
	// Sleep replaces the wait between rename attempts.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Runner processes one file at a time. Counters and the sink are only
// touched from the calling goroutine.
type Runner struct {
	cfg    config.Config
	logger *slog.Logger
	fs     afero.Fs
	runID  string
	now    func() time.Time

	known     model.KnownSenders
	filter    *filter.Filter
	extractor *extract.Extractor
	composer  *naming.Composer
	engine    *rename.Engine
	renderer  *pdf.Renderer
	sink      sink.Sink

	observers []func(stats.Event)
	counters  stats.Counters
	seq       int
}

// New validates the naming parameters and path filters; both are setup
// errors that must stop the batch before any file is touched.
func New(cfg config.Config, logger *slog.Logger, opts Options) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Fs == nil {
		return nil, errors.New("runner: filesystem is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("runner: report sink is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	composer, err := naming.NewComposer(cfg.MaxPathLength, cfg.TruncationMarker)
	if err != nil {
		return nil, err
	}

	f, err := filter.New(filter.Options{IncludePath: cfg.IncludePath, ExcludePath: cfg.ExcludePath})
	if err != nil {
		return nil, err
	}

	policy := rename.DefaultRetryPolicy(cfg.RetryAttempts, cfg.RetryDelay)
	if opts.Sleep != nil {
		policy.Sleep = opts.Sleep
	}

	return &Runner{
		cfg:       cfg,
		logger:    logger,
		fs:        opts.Fs,
		runID:     opts.RunID,
		now:       opts.Now,
		known:     opts.KnownSenders,
		filter:    f,
		extractor: extract.New(opts.Fs, logger),
		composer:  composer,
		engine:    rename.NewEngine(opts.Fs, policy, cfg.DryRun, logger),
		renderer:  pdf.New(opts.Fs),
		sink:      opts.Sink,
	}, nil
}

// Filter exposes the path filter so its hit counts can be reported.
func (r *Runner) Filter() *filter.Filter {
	return r.filter
}

// SubscribeStats registers fn for every event of the batch. Observers run
// synchronously on the batch goroutine.
func (r *Runner) SubscribeStats(fn func(stats.Event)) {
	r.observers = append(r.observers, fn)
}

func (r *Runner) emit(evt stats.Event) {
	for _, fn := range r.observers {
		fn(evt)
	}
}

// Discover lists the files the batch will process.
func (r *Runner) Discover() ([]string, error) {
	return Discover(r.fs, r.cfg.SearchDir, r.cfg.Recursive, r.filter, r.logger)
}

// Run discovers and processes the search directory.
func (r *Runner) Run(ctx context.Context) (stats.Counters, error) {
	files, err := r.Discover()
	if err != nil {
		return r.counters, err
	}
	return r.Process(ctx, files)
}

// Process handles files in order. Per-file problems are counted, never
// returned. A cancelled context stops the batch before the next file;
// renames already applied stay in place.
func (r *Runner) Process(ctx context.Context, files []string) (stats.Counters, error) {
	start := time.Now()
	r.counters.Found += len(files)
	r.logger.Info("processing message files", "dir", r.cfg.SearchDir, "count", len(files), "dryRun", r.cfg.DryRun, "recursive", r.cfg.Recursive)

	var stopErr error
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("batch interrupted", "processed", i, "remaining", len(files)-i)
			stopErr = err
			break
		}
		r.emit(stats.Event{Type: stats.EventTypeScanned, Path: path})
		r.emit(r.processFile(ctx, path))
	}

	if err := r.sink.Flush(); err != nil {
		r.counters.LogErrors++
		r.logger.Error("flush report", "path", r.sink.Path(), "error", err)
	}

	r.logger.Info("batch completed", append([]any{"duration", time.Since(start), "dryRun", r.cfg.DryRun}, r.counters.LogAttrs()...)...)
	return r.counters, stopErr
}

func (r *Runner) processFile(ctx context.Context, path string) stats.Event {
	r.seq++
	dir := filepath.Dir(path)
	row := model.LogRow{
		RunID:            r.runID,
		Seq:              r.seq,
		ProcessedAt:      r.now().Format(time.RFC3339),
		DryRun:           r.cfg.DryRun,
		Directory:        dir,
		OriginalFilename: filepath.Base(path),
		OldPath:          path,
		OldPathLength:    utf8.RuneCountInString(path),
	}

	access, err := rename.Probe(r.fs, path)
	row.Access = string(access)
	if !access.Writable() {
		row.Outcome = string(model.OutcomeAccessDenied)
		row.Error = errText(err)
		r.counters.RecordOutcome(model.OutcomeAccessDenied, err)
		r.logger.Warn("skipping inaccessible file", "path", path, "access", access, "error", err)
		r.record(row)
		return stats.Event{Type: stats.EventTypeProblem, Path: path, Err: err}
	}

	meta := r.extractor.Extract(path)
	row.MetadataStatus = meta.Status()

	sender := naming.ResolveSender(meta.Sender, r.known)
	plan := r.composer.Compose(meta.SentAt, sender, meta.Subject, dir)
	target := plan.Target(r.cfg.Truncate)

	_, hasSubject := meta.Subject.Get()
	if !plan.HasSentAt || !sender.HasEmail || !hasSubject {
		r.counters.Degraded++
		r.logger.Debug("degraded filename", "path", path, "status", meta.Status(), "senderSource", sender.Source)
	}

	overBudget := plan.OverBudget || (!r.cfg.Truncate && plan.IsTruncated)
	truncated := r.cfg.Truncate && plan.IsTruncated
	if truncated {
		r.counters.Truncated++
	}
	if overBudget {
		r.counters.OverBudget++
		r.logger.Warn("path exceeds length limit", "path", target, "length", utf8.RuneCountInString(target), "limit", r.cfg.MaxPathLength)
	}

	res := r.engine.Apply(ctx, path, target)
	r.counters.RecordOutcome(res.Outcome, res.Err)
	r.logger.Debug("rename decision", "old", path, "new", target, "outcome", res.Outcome, "applied", res.Applied, "attempts", res.Attempts)

	row.SenderRaw = meta.Sender.OrZero()
	row.SenderName = sender.Name
	row.SenderEmail = sender.Email
	row.HasSenderEmail = sender.HasEmail
	row.SenderSource = string(sender.Source)
	row.Subject = plan.Subject
	row.SanitizedSubject = plan.SanitizedSubject
	row.FormattedTimestamp = plan.FormattedTimestamp
	if plan.HasSentAt {
		row.SentAt = plan.SentAt.Format(time.DateTime)
	}
	row.FullFilename = plan.FullFilename
	row.NewFilename = filepath.Base(target)
	row.NewPath = target
	row.NewPathLength = utf8.RuneCountInString(target)
	row.IsTruncated = truncated
	row.OverBudget = overBudget
	row.Outcome = string(res.Outcome)
	row.Unchanged = res.Outcome == model.OutcomeUnchanged
	row.Duplicate = res.Outcome.IsDuplicate()
	row.DuplicateDeleted = res.Outcome == model.OutcomeDuplicateDeleted
	row.Attempts = res.Attempts
	row.Error = errText(errors.Join(meta.Err(), res.Err))

	if res.Outcome.AtTarget() {
		row.Dates = r.setDates(target, plan)
		row.PDF = r.renderPDF(target, meta)
	}

	r.record(row)
	return stats.Event{Type: stats.EventFor(res.Outcome), Path: path, Err: res.Err}
}

// setDates stamps the file at its final path with the send time. Failures
// are counted but never undo the rename.
func (r *Runner) setDates(path string, plan model.FilenamePlan) string {
	if !r.cfg.SetFileDates || r.cfg.DryRun || !plan.HasSentAt {
		return ""
	}

	res := rename.SetFileTimes(r.fs, path, plan.SentAt)
	switch {
	case res.CreationSet():
		r.counters.CreationDateSet++
	case !res.CreationUnsupported():
		r.counters.CreationDateFailed++
		r.logger.Warn("set creation time", "path", path, "error", res.CreationErr)
	}
	if res.ModificationSet() {
		r.counters.ModDateSet++
	} else {
		r.counters.ModDateFailed++
		r.logger.Warn("set modification time", "path", path, "error", res.ModificationErr)
	}
	return res.String()
}

func (r *Runner) renderPDF(path string, meta model.Metadata) string {
	if !r.cfg.GeneratePDF {
		return ""
	}
	if r.cfg.DryRun {
		r.counters.PDFSkipped++
		return "skipped: dry-run"
	}
	if !r.cfg.OverwritePDF && r.renderer.Exists(path) {
		r.counters.PDFSkipped++
		return "skipped: exists"
	}

	out, err := r.renderer.Render(path, meta)
	if err != nil {
		r.counters.PDFFailed++
		r.logger.Warn("render pdf", "path", path, "error", err)
		return "failed: " + err.Error()
	}
	r.counters.PDFGenerated++
	return out
}

func (r *Runner) record(row model.LogRow) {
	if err := r.sink.Append(row); err != nil {
		r.counters.LogErrors++
		r.logger.Error("append report row", "path", r.sink.Path(), "seq", row.Seq, "error", err)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
