package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dhcgn/msg-file-renamer/extract"
	"github.com/dhcgn/msg-file-renamer/filter"
	"github.com/dhcgn/msg-file-renamer/model"
	"github.com/dhcgn/msg-file-renamer/naming"
	"github.com/dhcgn/msg-file-renamer/runner"
	"github.com/dhcgn/msg-file-renamer/stats"
)

// OverviewFilename is written into the report directory by scan.
const OverviewFilename = "scan_overview.csv"

var (
	reportDir     string
	topN          int
	recursive     bool
	maxPathLength int
	knownSenders  string
	includePath   []string
	excludePath   []string
)

// ScanCmd reports on a directory without renaming anything.
var ScanCmd = &cobra.Command{
	Use:   "scan [directory]",
	Short: "List message files and show sender statistics without renaming",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		opts := ScanOptions{
			Dir:           dir,
			ReportDir:     reportDir,
			Top:           topN,
			Recursive:     recursive,
			MaxPathLength: maxPathLength,
			KnownSenders:  knownSenders,
			Filter:        filter.Options{IncludePath: includePath, ExcludePath: excludePath},
		}
		_, err = Scan(afero.NewOsFs(), opts, cmd.OutOrStdout(), slog.Default())
		return err
	},
}

func init() {
	ScanCmd.Flags().StringVarP(&reportDir, "output", "o", ".", "Output directory for the CSV overview")
	ScanCmd.Flags().IntVarP(&topN, "top", "t", 10, "Number of top senders and domains to display")
	ScanCmd.Flags().BoolVar(&recursive, "recursive", false, "Walk subdirectories as well")
	ScanCmd.Flags().IntVar(&maxPathLength, "max-path-length", 260, "Path length above which a file is flagged")
	ScanCmd.Flags().StringVar(&knownSenders, "known-senders", "", "Optional CSV with sender_name,sender_email")
	ScanCmd.Flags().StringArrayVar(&includePath, "include-path", nil, "Regex allow-list applied to relative paths (mutually exclusive with --exclude-path)")
	ScanCmd.Flags().StringArrayVar(&excludePath, "exclude-path", nil, "Regex block-list applied to relative paths (mutually exclusive with --include-path)")
}

// ScanOptions configures Scan.
type ScanOptions struct {
	Dir           string
	ReportDir     string
	Top           int
	Recursive     bool
	MaxPathLength int
	KnownSenders  string
	Filter        filter.Options
}

// ScanEntry is one line of the overview.
type ScanEntry struct {
	Number     int
	Filename   string
	Directory  string
	PathLength int
	OverLimit  bool
	Sender     string
}

// ScanResult aggregates a scan.
type ScanResult struct {
	Entries []ScanEntry
	Senders map[string]int
	Domains map[string]int
}

// Scan lists the message files in opts.Dir, writes the overview CSV and
// prints the top senders and sender domains to out.
func Scan(fsys afero.Fs, opts ScanOptions, out io.Writer, logger *slog.Logger) (ScanResult, error) {
	f, err := filter.New(opts.Filter)
	if err != nil {
		return ScanResult{}, fmt.Errorf("create filter: %w", err)
	}

	known, err := loadKnown(fsys, opts.KnownSenders)
	if err != nil {
		return ScanResult{}, err
	}

	files, err := runner.Discover(fsys, opts.Dir, opts.Recursive, f, logger)
	if err != nil {
		return ScanResult{}, err
	}

	fmt.Fprintln(out, "Analyzing directory:", opts.Dir)

	ex := extract.New(fsys, logger)
	res := ScanResult{Senders: make(map[string]int), Domains: make(map[string]int)}
	for i, path := range files {
		meta := ex.Extract(path)
		sender := naming.ResolveSender(meta.Sender, known)

		key := sender.Email
		if key == "" {
			key = sender.Name
		}
		if key == "" {
			key = "(unknown)"
		}
		res.Senders[key]++
		if at := strings.LastIndex(sender.Email, "@"); at >= 0 {
			res.Domains[strings.ToLower(sender.Email[at+1:])]++
		}

		length := utf8.RuneCountInString(path)
		res.Entries = append(res.Entries, ScanEntry{
			Number:     i + 1,
			Filename:   filepath.Base(path),
			Directory:  filepath.Dir(path),
			PathLength: length,
			OverLimit:  opts.MaxPathLength > 0 && length > opts.MaxPathLength,
			Sender:     key,
		})
	}

	overLimit := 0
	for _, e := range res.Entries {
		if e.OverLimit {
			overLimit++
		}
	}
	fmt.Fprintf(out, "Found %d message files (%d over %d characters)\n\n", len(files), overLimit, opts.MaxPathLength)

	PrintFilterStats(out, f)

	fmt.Fprintf(out, "Top %d senders:\n", opts.Top)
	stats.PrettyPrintTop(out, res.Senders, opts.Top)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Top %d sender domains:\n", opts.Top)
	stats.PrettyPrintTop(out, res.Domains, opts.Top)

	path, err := saveOverview(fsys, opts.ReportDir, res.Entries)
	if err != nil {
		return res, fmt.Errorf("error saving CSV overview: %w", err)
	}
	fmt.Fprintf(out, "\nOverview saved to: %s\n", path)

	return res, nil
}

func loadKnown(fsys afero.Fs, path string) (model.KnownSenders, error) {
	if path == "" {
		return nil, nil
	}
	return naming.LoadKnownSenders(fsys, path)
}

func saveOverview(fsys afero.Fs, dir string, entries []ScanEntry) (string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, OverviewFilename)
	file, err := fsys.Create(path)
	if err != nil {
		return "", err
	}

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"number", "filename", "directory", "path_length", "over_limit", "sender"}); err != nil {
		file.Close()
		return "", err
	}
	for _, e := range entries {
		record := []string{
			strconv.Itoa(e.Number),
			e.Filename,
			e.Directory,
			strconv.Itoa(e.PathLength),
			strconv.FormatBool(e.OverLimit),
			e.Sender,
		}
		if err := writer.Write(record); err != nil {
			file.Close()
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return "", err
	}
	return path, file.Close()
}

// PrintFilterStats lists the hit count of every configured path pattern.
// Nothing is printed when f has no patterns.
func PrintFilterStats(out io.Writer, f *filter.Filter) {
	filterStats := f.GetStats()
	if len(filterStats.IncludePatterns) > 0 {
		fmt.Fprintln(out, "Include Path Filters:")
		printFilterHits(out, filterStats.IncludePatterns, filterStats.IncludeHits)
		fmt.Fprintln(out)
	}
	if len(filterStats.ExcludePatterns) > 0 {
		fmt.Fprintln(out, "Exclude Path Filters:")
		printFilterHits(out, filterStats.ExcludePatterns, filterStats.ExcludeHits)
		fmt.Fprintln(out)
	}
}

func printFilterHits(out io.Writer, patterns []string, hits map[string]int) {
	type pair struct {
		Pattern string
		Count   int
	}
	pairs := make([]pair, 0, len(patterns))
	for _, pattern := range patterns {
		pairs = append(pairs, pair{pattern, hits[pattern]})
	}

	sort.Slice(pairs, func(i, j int) bool {
		// Sort by hit count descending, then by pattern
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].Pattern < pairs[j].Pattern
	})

	for _, p := range pairs {
		if p.Count > 0 {
			fmt.Fprintf(out, "  ✓ %s: %d hits\n", p.Pattern, p.Count)
		} else {
			fmt.Fprintf(out, "  ✗ %s: 0 hits\n", p.Pattern)
		}
	}
}
