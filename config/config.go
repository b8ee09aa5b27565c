package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dhcgn/msg-file-renamer/sink"
)

// EnvPrefix namespaces the environment variables that mirror the flags,
// e.g. MSG_RENAMER_SEARCH_DIR for --search-dir.
const EnvPrefix = "MSG_RENAMER"

// ErrKnownSendersMissing is returned when a known-senders file was requested
// explicitly but cannot be found.
var ErrKnownSendersMissing = errors.New("known-senders file not found")

// legacyEnv maps flags to the environment names older deployments used.
var legacyEnv = map[string]string{
	"search-dir":       "TARGET_DIRECTORY",
	"known-senders":    "KNOWNSENDER_FILE",
	"max-path-length":  "MAX_PATH_LENGTH",
	"log-dir":          "LOG_FILE_DIRECTORY",
	"testdata-source":  "SOURCE_DIRECTORY_TEST_DATA",
	"max-log-files":    "MAX_DEBUG_LOG_FILE_COUNT",
	"max-report-files": "MAX_EXCEL_LOG_FILE_COUNT",
}

// Config captures all options required to run a rename batch.
type Config struct {
	SearchDir string
	DryRun    bool
	Recursive bool

	// Truncate selects the truncated path when the composed path exceeds
	// MaxPathLength.
	Truncate         bool
	MaxPathLength    int
	TruncationMarker string

	SetFileDates bool
	GeneratePDF  bool
	OverwritePDF bool

	UseKnownSenders  bool
	KnownSendersPath string
	// KnownSendersRequired is set when the path was given explicitly; a
	// missing file is then fatal instead of a warning.
	KnownSendersRequired bool

	ReportDir      string
	ReportBasename string
	ReportFormat   sink.Format
	MaxReportFiles int

	LogDir      string
	LogLevel    string
	MaxLogFiles int

	RetryAttempts int
	RetryDelay    time.Duration

	IncludePath []string
	ExcludePath []string

	InitTestdata   bool
	TestdataSource string

	Progress bool
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	flags.String("config", "", "Optional YAML/TOML/JSON file with flag values")
	flags.String("search-dir", "", "Directory containing the .msg files to rename")
	flags.Bool("apply", false, "Rename files; without it the batch only reports what would happen")
	flags.Bool("recursive", false, "Walk subdirectories as well")
	flags.Bool("no-truncate", false, "Keep the full filename even when the path exceeds --max-path-length")
	flags.Int("max-path-length", 260, "Maximum length of the resulting path in characters")
	flags.String("truncation-marker", "...msg", "Suffix appended to truncated filenames")
	flags.Bool("set-file-dates", false, "Set creation and modification time to the send date")
	flags.Bool("generate-pdf", false, "Write a PDF rendition next to every renamed message")
	flags.Bool("overwrite-pdf", false, "Replace existing PDF renditions")
	flags.String("known-senders", "known_senders.csv", "CSV with sender_name,sender_email used when a sender has no address")
	flags.Bool("no-known-senders", false, "Do not consult the known-senders table")
	flags.String("report-dir", ".", "Directory for the per-batch report file")
	flags.String("report-basename", "excel_log_file", "Base name of the report file")
	flags.String("report-format", string(sink.FormatXLSX), "Report format: xlsx, csv, jsonl, sqlite")
	flags.Int("max-report-files", 10, "Number of report files to keep (0 keeps all)")
	flags.String("log-dir", "", "Directory for debug log files (empty logs to stdout only)")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.Int("max-log-files", 10, "Number of debug log files to keep (0 keeps all)")
	flags.Int("retry-attempts", 3, "Rename attempts per file before giving up")
	flags.Duration("retry-delay", time.Second, "Delay between rename attempts")
	flags.StringArray("include-path", nil, "Regex allow-list applied to relative paths (mutually exclusive with --exclude-path)")
	flags.StringArray("exclude-path", nil, "Regex block-list applied to relative paths (mutually exclusive with --include-path)")
	flags.Bool("init-testdata", false, "Replace the search directory with a copy of --testdata-source before the batch")
	flags.String("testdata-source", "", "Directory copied into the search directory by --init-testdata")
	flags.Bool("progress", true, "Show a progress bar (log level info only)")
	return nil
}

// LoadDotEnv loads path into the process environment. A missing file is not
// an error; variables already set win.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadConfig merges flags, environment and an optional config file into a
// validated Config. Explicit flags win over the environment, which wins over
// the config file and flag defaults.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return Config{}, err
	}

	format, err := sink.ParseFormat(v.GetString("report-format"))
	if err != nil {
		return Config{}, err
	}

	logLevel := strings.ToLower(strings.TrimSpace(v.GetString("log-level")))
	if logLevel == "warning" {
		logLevel = "warn"
	}

	searchDir, err := absPath(v.GetString("search-dir"))
	if err != nil {
		return Config{}, fmt.Errorf("--search-dir: %w", err)
	}
	testdataSource, err := absPath(v.GetString("testdata-source"))
	if err != nil {
		return Config{}, fmt.Errorf("--testdata-source: %w", err)
	}

	cfg := Config{
		SearchDir:            searchDir,
		DryRun:               !v.GetBool("apply"),
		Recursive:            v.GetBool("recursive"),
		Truncate:             !v.GetBool("no-truncate"),
		MaxPathLength:        v.GetInt("max-path-length"),
		TruncationMarker:     v.GetString("truncation-marker"),
		SetFileDates:         v.GetBool("set-file-dates"),
		GeneratePDF:          v.GetBool("generate-pdf"),
		OverwritePDF:         v.GetBool("overwrite-pdf"),
		UseKnownSenders:      !v.GetBool("no-known-senders"),
		KnownSendersPath:     cleanPath(v.GetString("known-senders")),
		KnownSendersRequired: v.IsSet("known-senders"),
		ReportDir:            cleanPath(v.GetString("report-dir")),
		ReportBasename:       v.GetString("report-basename"),
		ReportFormat:         format,
		MaxReportFiles:       v.GetInt("max-report-files"),
		LogDir:               cleanPath(v.GetString("log-dir")),
		LogLevel:             logLevel,
		MaxLogFiles:          v.GetInt("max-log-files"),
		RetryAttempts:        v.GetInt("retry-attempts"),
		RetryDelay:           v.GetDuration("retry-delay"),
		IncludePath:          v.GetStringSlice("include-path"),
		ExcludePath:          v.GetStringSlice("exclude-path"),
		InitTestdata:         v.GetBool("init-testdata"),
		TestdataSource:       testdataSource,
		Progress:             v.GetBool("progress"),
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	for key, legacy := range legacyEnv {
		current := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		if err := v.BindEnv(key, current, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", legacy, err)
		}
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return v, nil
}

func validateConfig(cfg Config) error {
	if cfg.SearchDir == "" {
		return fmt.Errorf("--search-dir is required")
	}
	if cfg.MaxPathLength <= 0 {
		return fmt.Errorf("--max-path-length must be positive")
	}
	if cfg.TruncationMarker == "" {
		return fmt.Errorf("--truncation-marker must not be empty")
	}
	if cfg.RetryAttempts < 1 {
		return fmt.Errorf("--retry-attempts must be at least 1")
	}
	if cfg.RetryDelay < 0 {
		return fmt.Errorf("--retry-delay must not be negative")
	}
	if cfg.MaxReportFiles < 0 || cfg.MaxLogFiles < 0 {
		return fmt.Errorf("file retention counts must not be negative")
	}
	if strings.TrimSpace(cfg.ReportBasename) == "" {
		return fmt.Errorf("--report-basename must not be empty")
	}
	if len(cfg.IncludePath) > 0 && len(cfg.ExcludePath) > 0 {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}
	if cfg.InitTestdata && cfg.TestdataSource == "" {
		return fmt.Errorf("--testdata-source is required with --init-testdata")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}

	return nil
}

// CheckKnownSenders reports whether the configured table should be loaded.
// A missing default file is skipped; a missing explicit file is fatal.
func CheckKnownSenders(cfg Config) (bool, error) {
	if !cfg.UseKnownSenders || cfg.KnownSendersPath == "" {
		return false, nil
	}
	if _, err := os.Stat(cfg.KnownSendersPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cfg.KnownSendersRequired {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s", ErrKnownSendersMissing, cfg.KnownSendersPath)
	}
	return true, nil
}

// absPath resolves p against the working directory. Path length budgets
// are measured on the absolute form.
func absPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", nil
	}
	return filepath.Abs(p)
}

func cleanPath(p string) string {
	if strings.TrimSpace(p) == "" {
		return ""
	}
	return filepath.Clean(p)
}
