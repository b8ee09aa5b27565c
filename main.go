package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dhcgn/msg-file-renamer/cmd"
	"github.com/dhcgn/msg-file-renamer/config"
	"github.com/dhcgn/msg-file-renamer/model"
	"github.com/dhcgn/msg-file-renamer/naming"
	"github.com/dhcgn/msg-file-renamer/progress"
	"github.com/dhcgn/msg-file-renamer/runner"
	"github.com/dhcgn/msg-file-renamer/sink"
	"github.com/dhcgn/msg-file-renamer/testset"
)

const (
	appName       = "msg-file-renamer"
	logFileLayout = "20060102T150405"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          appName,
		Short:        "Rename Outlook .msg files after their send date, sender and subject",
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}

			cfg, err := config.LoadConfig(c)
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg, time.Now())
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			runID := uuid.NewString()
			logger.Info("starting "+appName, "dir", cfg.SearchDir, "dryRun", cfg.DryRun, "recursive", cfg.Recursive, "runID", runID)

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt)
			defer stop()

			return run(ctx, cfg, logger, runID)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	rootCmd.AddCommand(cmd.ScanCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, runID string) error {
	fsys := afero.NewOsFs()

	loadKnown, err := config.CheckKnownSenders(cfg)
	if err != nil {
		return err
	}

	if cfg.InitTestdata {
		n, err := testset.Stage(fsys, cfg.TestdataSource, cfg.SearchDir)
		if err != nil {
			return fmt.Errorf("stage test data: %w", err)
		}
		logger.Info("staged test data", "source", cfg.TestdataSource, "target", cfg.SearchDir, "files", n)
	}

	var known model.KnownSenders
	switch {
	case loadKnown:
		known, err = naming.LoadKnownSenders(fsys, cfg.KnownSendersPath)
		if err != nil {
			return fmt.Errorf("known senders: %w", err)
		}
		logger.Info("loaded known senders", "path", cfg.KnownSendersPath, "count", len(known))
	case cfg.UseKnownSenders:
		logger.Warn("known-senders file not found, continuing without it", "path", cfg.KnownSendersPath)
	}

	start := time.Now()
	s, err := sink.Open(fsys, sink.Options{
		Dir:      cfg.ReportDir,
		Basename: cfg.ReportBasename,
		Format:   cfg.ReportFormat,
		RunID:    runID,
		Keep:     cfg.MaxReportFiles,
		Now:      start,
	})
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("close report", "path", s.Path(), "error", err)
		}
	}()

	r, err := runner.New(cfg, logger, runner.Options{Fs: fsys, Sink: s, KnownSenders: known, RunID: runID})
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}

	files, err := r.Discover()
	if err != nil {
		return err
	}

	bar := progress.New(len(files), cfg.LogLevel, cfg.Progress)
	r.SubscribeStats(bar.Update)

	counters, err := r.Process(ctx, files)
	bar.Stop()

	progress.PrintSummary(counters, time.Since(start), cfg.DryRun)
	cmd.PrintFilterStats(os.Stdout, r.Filter())
	logger.Info("report written", "path", s.Path(), "runID", runID)
	return err
}

func setupLogger(cfg config.Config, now time.Time) (*slog.Logger, func() error, error) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}

	opts := log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          appName,
	}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("%s-%s.log", appName, now.Format(logFileLayout)))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := log.NewWithOptions(io.MultiWriter(os.Stdout, file), opts)
		logger := slog.New(handler)
		cleanup = func() error {
			return file.Close()
		}

		if cfg.MaxLogFiles > 0 {
			removed, err := sink.Prune(afero.NewOsFs(), cfg.LogDir, appName+"-", ".log", cfg.MaxLogFiles)
			if err != nil {
				logger.Warn("prune log files", "dir", cfg.LogDir, "error", err)
			} else if len(removed) > 0 {
				logger.Debug("pruned log files", "removed", len(removed))
			}
		}
		return logger, cleanup, nil
	}

	handler := log.NewWithOptions(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
