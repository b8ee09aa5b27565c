package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhcgn/msg-file-renamer/config"
	"github.com/dhcgn/msg-file-renamer/filter"
	"github.com/dhcgn/msg-file-renamer/model"
	"github.com/dhcgn/msg-file-renamer/naming"
	"github.com/dhcgn/msg-file-renamer/rename"
	"github.com/dhcgn/msg-file-renamer/stats"
)

func TestMain(m *testing.M) {
	time.Local = time.FixedZone("CET", 3600)
	os.Exit(m.Run())
}

type memSink struct {
	rows    []model.LogRow
	flushes int
}

func (s *memSink) Append(row model.LogRow) error { s.rows = append(s.rows, row); return nil }
func (s *memSink) Flush() error { s.flushes++; return nil }
func (s *memSink) Close() error { return nil }
func (s *memSink) Path() string { return "mem" }

func (s *memSink) outcomes() map[string]string {
	out := make(map[string]string, len(s.rows))
	for _, row := range s.rows {
		out[row.OriginalFilename] = row.Outcome
	}
	return out
}

func message(from, subject, date string) []byte {
	var b strings.Builder
	if from != "" {
		fmt.Fprintf(&b, "From: %s\r\n", from)
	}
	if subject != "" {
		fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	}
	if date != "" {
		fmt.Fprintf(&b, "Date: %s\r\n", date)
	}
	b.WriteString("To: bob@example.com\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nHello Bob.\r\n")
	return []byte(b.String())
}

const (
	invoiceDate = "Tue, 05 Mar 2024 14:30:00 +0100"
	invoiceName = "20240305-14uhr30_jane@example.com_Re-_Invoice_42.msg"
)

func testConfig(dir string) config.Config {
	return config.Config{
		SearchDir:        dir,
		DryRun:           false,
		Truncate:         true,
		MaxPathLength:    260,
		TruncationMarker: "...msg",
		RetryAttempts:    3,
		RetryDelay:       time.Second,
		LogLevel:         "error",
	}
}

func newRunner(t *testing.T, fsys afero.Fs, cfg config.Config, known model.KnownSenders) (*Runner, *memSink) {
	t.Helper()
	s := &memSink{}
	r, err := New(cfg, nil, Options{
		Fs:           fsys,
		Sink:         s,
		KnownSenders: known,
		RunID:        "run-1",
		Sleep:        func(context.Context, time.Duration) error { return nil },
		Now:          func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return r, s
}

func write(t *testing.T, fsys afero.Fs, path string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, data, 0o644))
}

func names(t *testing.T, fsys afero.Fs, dir string) []string {
	t.Helper()
	entries, err := afero.ReadDir(fsys, dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out
}

func TestDiscover(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", nil)
	write(t, fsys, "/mail/B.MSG", nil)
	write(t, fsys, "/mail/notes.txt", nil)
	write(t, fsys, "/mail/2024/c.msg", nil)
	write(t, fsys, "/mail/2024/deep/d.Msg", nil)
	require.NoError(t, fsys.MkdirAll("/mail/folder.msg", 0o755))

	top, err := Discover(fsys, "/mail", false, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/mail/a.msg", "/mail/B.MSG"}, top)

	all, err := Discover(fsys, "/mail", true, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/mail/a.msg", "/mail/B.MSG", "/mail/2024/c.msg", "/mail/2024/deep/d.Msg"}, all)

	f, err := filter.New(filter.Options{ExcludePath: []string{`^2024/deep/`}})
	require.NoError(t, err)
	filtered, err := Discover(fsys, "/mail", true, f, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/mail/a.msg", "/mail/B.MSG", "/mail/2024/c.msg"}, filtered)

	_, err = Discover(fsys, "/missing", false, nil, nil)
	assert.Error(t, err)
	_, err = Discover(fsys, "/mail/a.msg", false, nil, nil)
	assert.Error(t, err)
}

func TestRunner_FilterHits(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Hello", invoiceDate))
	write(t, fsys, "/mail/skip.msg", message("Jane Doe <jane@example.com>", "Skip", invoiceDate))

	cfg := testConfig("/mail")
	cfg.ExcludePath = []string{`^skip\.msg$`}
	r, _ := newRunner(t, fsys, cfg, nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, counters.Found)
	assert.Equal(t, map[string]int{`^skip\.msg$`: 1}, r.Filter().GetStats().ExcludeHits)
}

func TestNew_InvalidSetup(t *testing.T) {
	fsys := afero.NewMemMapFs()

	cfg := testConfig("/mail")
	cfg.TruncationMarker = ""
	_, err := New(cfg, nil, Options{Fs: fsys, Sink: &memSink{}})
	assert.ErrorIs(t, err, naming.ErrInvalidTruncation)

	cfg = testConfig("/mail")
	cfg.IncludePath = []string{"("}
	_, err = New(cfg, nil, Options{Fs: fsys, Sink: &memSink{}})
	assert.Error(t, err)

	_, err = New(testConfig("/mail"), nil, Options{Fs: fsys})
	assert.Error(t, err)
}

func TestRun_RenamesBatch(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/one.msg", message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))
	write(t, fsys, "/mail/two.msg", message(`"Bob" <bob@example.com>`, "Lunch", "Wed, 06 Mar 2024 09:05:00 +0000"))
	write(t, fsys, "/mail/empty.msg", nil)

	r, s := newRunner(t, fsys, testConfig("/mail"), nil)
	var events []string
	r.SubscribeStats(func(evt stats.Event) { events = append(events, string(evt.Type)) })

	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		invoiceName,
		"20240306-10uhr05_bob@example.com_Lunch.msg",
		"__.msg",
	}, names(t, fsys, "/mail"))

	assert.Equal(t, 3, counters.Found)
	assert.Equal(t, 3, counters.Renamed)
	assert.Equal(t, 1, counters.Degraded)
	assert.Zero(t, counters.Problems)
	assert.Equal(t, 1, s.flushes)
	assert.Len(t, events, 6)

	require.Len(t, s.rows, 3)
	for i, row := range s.rows {
		assert.Equal(t, i+1, row.Seq)
		assert.Equal(t, "run-1", row.RunID)
	}

	var invoice model.LogRow
	for _, row := range s.rows {
		if row.OriginalFilename == "one.msg" {
			invoice = row
		}
	}
	assert.Equal(t, "writable", invoice.Access)
	assert.Equal(t, "jane@example.com", invoice.SenderEmail)
	assert.Equal(t, string(model.SenderSourceEmbedded), invoice.SenderSource)
	assert.Equal(t, "Re-_Invoice_42", invoice.SanitizedSubject)
	assert.Equal(t, "20240305-14uhr30", invoice.FormattedTimestamp)
	assert.Equal(t, filepath.Join("/mail", invoiceName), invoice.NewPath)
	assert.Equal(t, string(model.OutcomeRenamed), invoice.Outcome)
	assert.Equal(t, 1, invoice.Attempts)
}

func TestRun_UnknownTransferEncoding(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", []byte("From: Jane Doe <jane@example.com>\r\n"+
		"Subject: Re: Invoice #42\r\n"+
		"Date: "+invoiceDate+"\r\n"+
		"Content-Transfer-Encoding: x-uuencode\r\n\r\n"+
		"begin 644 x\r\nend\r\n"))
	write(t, fsys, "/mail/b.msg", message("Carol <carol@example.com>", "Hi", invoiceDate))

	r, s := newRunner(t, fsys, testConfig("/mail"), nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, counters.Renamed)
	assert.Equal(t, []string{
		"20240305-14uhr30_carol@example.com_Hi.msg",
		invoiceName,
	}, names(t, fsys, "/mail"))
	require.Len(t, s.rows, 2)
	assert.Contains(t, s.rows[0].MetadataStatus, "body=failed")
	assert.NotEmpty(t, s.rows[0].Error)
}

func TestRun_SecondRunIsUnchanged(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/one.msg", message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))

	r, _ := newRunner(t, fsys, testConfig("/mail"), nil)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	r, s := newRunner(t, fsys, testConfig("/mail"), nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, counters.Unchanged)
	assert.Zero(t, counters.Renamed)
	assert.True(t, s.rows[0].Unchanged)
	assert.Equal(t, []string{invoiceName}, names(t, fsys, "/mail"))
}

func TestRun_DryRunMatchesApply(t *testing.T) {
	seed := func() afero.Fs {
		fsys := afero.NewMemMapFs()
		write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))
		write(t, fsys, "/mail/b.msg", message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))
		write(t, fsys, "/mail/c.msg", message("Carol <carol@example.com>", "Hi", invoiceDate))
		write(t, fsys, "/mail/"+invoiceName, message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))
		return fsys
	}

	dryFs := seed()
	cfg := testConfig("/mail")
	cfg.DryRun = true
	dry, drySink := newRunner(t, dryFs, cfg, nil)
	_, err := dry.Run(context.Background())
	require.NoError(t, err)

	applyFs := seed()
	apply, applySink := newRunner(t, applyFs, testConfig("/mail"), nil)
	_, err = apply.Run(context.Background())
	require.NoError(t, err)

	// Nothing moved in dry-run.
	assert.Equal(t, []string{invoiceName, "a.msg", "b.msg", "c.msg"}, names(t, dryFs, "/mail"))

	dryOut, applyOut := drySink.outcomes(), applySink.outcomes()
	for name, got := range dryOut {
		want := model.RenameOutcome(applyOut[name])
		assert.Equal(t, want.IsDuplicate(), model.RenameOutcome(got).IsDuplicate(), name)
		assert.Equal(t, want.AtTarget(), model.RenameOutcome(got).AtTarget(), name)
	}
	assert.Equal(t, string(model.OutcomeUnchanged), dryOut[invoiceName])
	assert.Equal(t, string(model.OutcomeDuplicateDetected), dryOut["a.msg"])
	assert.Equal(t, string(model.OutcomeDuplicateDeleted), applyOut["a.msg"])
}

func TestRun_DuplicateDeletesSource(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))
	write(t, fsys, "/mail/b.msg", message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))

	r, s := newRunner(t, fsys, testConfig("/mail"), nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{invoiceName}, names(t, fsys, "/mail"))
	assert.Equal(t, 1, counters.Renamed)
	assert.Equal(t, 1, counters.DuplicatesFound)
	assert.Equal(t, 1, counters.DuplicatesDeleted)
	assert.Equal(t, string(model.OutcomeDuplicateDeleted), s.outcomes()["b.msg"])
	assert.True(t, s.rows[1].DuplicateDeleted)
}

func TestRun_KnownSenders(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe", "Hello", invoiceDate))

	known := model.KnownSenders{{Name: "Jane Doe", Email: "jane@example.com"}}
	r, s := newRunner(t, fsys, testConfig("/mail"), known)
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"20240305-14uhr30_jane@example.com_Hello.msg"}, names(t, fsys, "/mail"))
	assert.Equal(t, string(model.SenderSourceTable), s.rows[0].SenderSource)
	assert.True(t, s.rows[0].HasSenderEmail)
}

func TestRun_ReadOnlyFileIsSkipped(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Hello", invoiceDate))
	require.NoError(t, fsys.Chmod("/mail/a.msg", 0o444))

	r, s := newRunner(t, fsys, testConfig("/mail"), nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a.msg"}, names(t, fsys, "/mail"))
	assert.Equal(t, 1, counters.AccessDenied)
	assert.Equal(t, 1, counters.Problems)
	assert.Zero(t, counters.Unchanged+counters.Renamed)
	require.Len(t, s.rows, 1)
	assert.Equal(t, string(rename.AccessReadOnly), s.rows[0].Access)
	assert.Equal(t, string(model.OutcomeAccessDenied), s.rows[0].Outcome)
	assert.NotEmpty(t, s.rows[0].Error)
}

func TestRun_Truncation(t *testing.T) {
	fsys := afero.NewMemMapFs()
	subject := strings.Repeat("Very long subject ", 5)
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", subject, invoiceDate))

	cfg := testConfig("/mail")
	cfg.MaxPathLength = 60
	r, s := newRunner(t, fsys, cfg, nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	got := names(t, fsys, "/mail")
	require.Len(t, got, 1)
	assert.True(t, strings.HasSuffix(got[0], "...msg"), got[0])
	assert.LessOrEqual(t, len([]rune(filepath.Join("/mail", got[0]))), 60)
	assert.Equal(t, 1, counters.Truncated)
	assert.True(t, s.rows[0].IsTruncated)
	assert.NotEqual(t, s.rows[0].FullFilename, s.rows[0].NewFilename)
}

func TestRun_NoTruncateKeepsFullName(t *testing.T) {
	fsys := afero.NewMemMapFs()
	subject := strings.Repeat("Very long subject ", 5)
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", subject, invoiceDate))

	cfg := testConfig("/mail")
	cfg.MaxPathLength = 60
	cfg.Truncate = false
	r, s := newRunner(t, fsys, cfg, nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{s.rows[0].FullFilename}, names(t, fsys, "/mail"))
	assert.Zero(t, counters.Truncated)
	assert.Equal(t, 1, counters.OverBudget)
	assert.True(t, s.rows[0].OverBudget)
}

func TestRun_SetFileDates(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))
	write(t, fsys, "/mail/b.msg", message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))
	write(t, fsys, "/mail/undated.msg", message("Jane Doe <jane@example.com>", "No date", ""))

	cfg := testConfig("/mail")
	cfg.SetFileDates = true
	r, s := newRunner(t, fsys, cfg, nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	info, err := fsys.Stat(filepath.Join("/mail", invoiceName))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(time.Date(2024, 3, 5, 14, 30, 0, 0, time.Local)))

	// Only the renamed, dated file is stamped; the duplicate and the
	// undated file are not.
	assert.Equal(t, 1, counters.ModDateSet)
	assert.Zero(t, counters.ModDateFailed)
	assert.Zero(t, counters.CreationDateSet+counters.CreationDateFailed)
	assert.Equal(t, "created=unsupported modified=set", s.rows[0].Dates)
	assert.Empty(t, s.rows[1].Dates)
}

func TestRun_SetFileDatesDryRun(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Hello", invoiceDate))

	cfg := testConfig("/mail")
	cfg.SetFileDates = true
	cfg.DryRun = true
	r, _ := newRunner(t, fsys, cfg, nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counters.ModDateSet)
}

func TestRun_GeneratePDF(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Re: Invoice #42", invoiceDate))

	cfg := testConfig("/mail")
	cfg.GeneratePDF = true
	r, s := newRunner(t, fsys, cfg, nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	pdfName := strings.TrimSuffix(invoiceName, ".msg") + ".pdf"
	assert.Equal(t, []string{pdfName, invoiceName}, names(t, fsys, "/mail"))
	assert.Equal(t, 1, counters.PDFGenerated)
	assert.Equal(t, filepath.Join("/mail", pdfName), s.rows[0].PDF)

	// An existing rendition is kept unless overwrite is requested.
	r, s = newRunner(t, fsys, cfg, nil)
	counters, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counters.PDFSkipped)
	assert.Equal(t, "skipped: exists", s.rows[0].PDF)

	cfg.OverwritePDF = true
	r, _ = newRunner(t, fsys, cfg, nil)
	counters, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counters.PDFGenerated)
}

func TestRun_GeneratePDFDryRun(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Hello", invoiceDate))

	cfg := testConfig("/mail")
	cfg.GeneratePDF = true
	cfg.DryRun = true
	r, _ := newRunner(t, fsys, cfg, nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, counters.PDFSkipped)
	assert.Equal(t, []string{"a.msg"}, names(t, fsys, "/mail"))
}

func TestRun_Recursive(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Top", invoiceDate))
	write(t, fsys, "/mail/sub/b.msg", message("Jane Doe <jane@example.com>", "Nested", invoiceDate))

	r, _ := newRunner(t, fsys, testConfig("/mail"), nil)
	counters, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counters.Found)
	assert.Equal(t, []string{"b.msg"}, names(t, fsys, "/mail/sub"))

	cfg := testConfig("/mail")
	cfg.Recursive = true
	r, _ = newRunner(t, fsys, cfg, nil)
	counters, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counters.Found)
	assert.Equal(t, 1, counters.Unchanged)
	assert.Equal(t, []string{"20240305-14uhr30_jane@example.com_Nested.msg"}, names(t, fsys, "/mail/sub"))
}

func TestProcess_Cancelled(t *testing.T) {
	fsys := afero.NewMemMapFs()
	write(t, fsys, "/mail/a.msg", message("Jane Doe <jane@example.com>", "Hello", invoiceDate))

	r, s := newRunner(t, fsys, testConfig("/mail"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Process(ctx, []string{"/mail/a.msg"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.rows)
	assert.Equal(t, 1, s.flushes)
	assert.Equal(t, []string{"a.msg"}, names(t, fsys, "/mail"))
}
