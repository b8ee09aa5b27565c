package progress

import (
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/pterm/pterm"

	"github.com/dhcgn/msg-file-renamer/stats"
)

// Bar shows a progress bar while files are processed.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	enabled bool
}

// New creates a progress bar if enabled and logLevel is "info"; other
// levels interleave log lines with the bar.
func New(total int, logLevel string, enabled bool) *Bar {
	bar := &Bar{
		total:   total,
		enabled: enabled && logLevel == "info" && total > 0,
	}

	if bar.enabled {
		pterm.Info.Printf("Message files found: %d\n", total)
		pterm.Println()

		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Renaming messages").
			Start()
		bar.pb = pb
	}

	return bar
}

// Update advances the bar for one processed file.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	switch evt.Type {
	case stats.EventTypeProblem:
		// Show problems above the progress bar
		if evt.Err != nil {
			pterm.Error.Printf("%s: %v\n", filepath.Base(evt.Path), evt.Err)
		}
	case stats.EventTypeScanned:
		b.pb.UpdateTitle("Processing: " + shortName(filepath.Base(evt.Path), 40))
		return
	}
	b.pb.Increment()
}

// Stop finalizes the progress bar.
func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}

	// Ensure we reach 100%
	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}

	_, _ = b.pb.Stop()
	pterm.Success.Println("Processing complete!")
}

// PrintSummary renders the batch counters as a table.
func PrintSummary(c stats.Counters, duration time.Duration, dryRun bool) {
	pterm.Println()
	title := "Summary"
	if dryRun {
		title = "Summary (dry-run, no files changed)"
	}
	pterm.DefaultSection.Println(title)

	data := pterm.TableData{{"Counter", "Value"}}
	for _, row := range c.Rows() {
		data = append(data, []string{row[0], row[1]})
	}
	data = append(data, []string{"duration", duration.Round(time.Millisecond).String()})

	_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	if c.Problems > 0 {
		pterm.Warning.Printf("%d file(s) need attention, see the report for details\n", c.Problems)
	}
}

// shortName cuts name to at most limit characters, ending in "...".
func shortName(name string, limit int) string {
	if utf8.RuneCountInString(name) <= limit {
		return name
	}
	runes := []rune(name)
	return string(runes[:limit-3]) + "..."
}
