// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hextract/cli/internal/archive"
	"hextract/cli/internal/catalog"
	"hextract/cli/internal/config"
	"hextract/cli/internal/logging"
	"hextract/cli/internal/progress"
	"hextract/cli/internal/scheduler"
	"hextract/cli/internal/terminal"
	"hextract/cli/internal/xdg"
)

var (
	extractCatalog     string
	extractOut         string
	extractBatchSize   int
	extractDelay       time.Duration
	extractBatchDelay  time.Duration
	extractTimeout     time.Duration
	extractMaxRetries  int
	extractSkipErrors  bool
	extractNoBrowser   bool
	extractWatchConfig bool
	extractNoArchive   bool
)

const controlsHint = "p+Enter pause · r+Enter resume · s+Enter stop · Ctrl+C stop"

// extractCmd runs the whole catalog through the gateway.
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Send every catalog command and write the extraction report",
	Long: `The extract command acquires a session from the logged-in browser tab (or the
config and keychain), sorts the catalog by priority and sends the commands in
batches, pausing between commands and batches. Each response is classified and
structured. The final report is written as JSON and, when configured, archived
to PostgreSQL.

While running, type p, r or s followed by Enter to pause, resume or stop.
Ctrl+C stops after the command in flight; a second Ctrl+C aborts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appCfg
		log := appLog

		path := cfg.Catalog
		if extractCatalog != "" {
			path = extractCatalog
		}
		specs, fellBack := catalog.LoadOrFallback(path, log)
		if fellBack {
			pterm.Warning.Printfln("Using the built-in catalog (%d commands)", len(specs))
		}

		settings := extractSettings(cmd, cfg.Run)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		p := wirePipeline(ctx, cfg, log, wireOptions{noBrowser: extractNoBrowser})
		defer p.Close()

		interactive := terminal.IsInteractive()
		renderer := progress.NewRenderer(interactive, os.Stdout, controlsHint)
		sched := scheduler.New(p.gateway, p.provider, scheduler.Options{
			Logger:  log.Named("scheduler"),
			OnEvent: renderer.Handle,
		})

		if extractWatchConfig {
			watchSettings(sched, cfg.Run, log)
		}

		sigs := make(chan os.Signal, 2)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)

		pterm.Info.Printfln("Extracting %d commands in batches of %d", len(specs), settings.BatchSize)
		renderer.Start()
		if err := sched.Start(ctx, specs, settings); err != nil {
			renderer.Stop()
			return err
		}
		go forwardSignals(ctx, sigs, sched, cancel)
		if interactive {
			go readControls(ctx, os.Stdin, sched)
		}
		runErr := sched.Wait()
		renderer.Stop()

		st := p.gateway.Stats()
		log.Info("gateway statistics",
			zap.Int("requests", st.Total),
			zap.Int("failed", st.Failed),
			zap.Float64("success_rate", st.SuccessRate),
			zap.Duration("average", st.AverageDuration))

		rep := sched.Report()
		progress.PrintReport(rep)

		out, err := writeReport(rep, extractOut, cfg.OutputDir)
		if err != nil {
			pterm.Error.Println(logging.PresentError("write report", err))
		} else {
			pterm.Success.Println("Report written to " + out)
		}

		if !extractNoArchive {
			archiveReport(context.Background(), rep, log)
		}
		return runErr
	},
}

// extractSettings overlays explicitly set flags on the configured settings.
func extractSettings(cmd *cobra.Command, base scheduler.Settings) scheduler.Settings {
	s := base
	f := cmd.Flags()
	if f.Changed("batch-size") {
		s.BatchSize = extractBatchSize
	}
	if f.Changed("delay") {
		s.DelayBetweenCommands = extractDelay
	}
	if f.Changed("batch-delay") {
		s.DelayBetweenBatches = extractBatchDelay
	}
	if f.Changed("timeout") {
		s.TimeoutPerCommand = extractTimeout
	}
	if f.Changed("max-retries") {
		s.MaxRetries = extractMaxRetries
	}
	if f.Changed("skip-errors") {
		s.SkipOnError = extractSkipErrors
	}
	return s
}

// watchSettings pushes run settings edited in the config file into the
// running scheduler.
func watchSettings(sched *scheduler.Scheduler, base scheduler.Settings, log *zap.Logger) {
	if appViper == nil || appViper.ConfigFileUsed() == "" {
		pterm.Warning.Println("--watch-config ignored: no config file in use")
		return
	}
	var mu sync.Mutex
	last := base
	config.Watch(appViper, log, func(c config.Config) {
		mu.Lock()
		defer mu.Unlock()
		patch := scheduler.Diff(last, c.Run)
		if patch.IsEmpty() {
			return
		}
		last = c.Run
		applied := sched.UpdateSettings(patch)
		log.Info("run settings updated from config file",
			zap.Int("batch_size", applied.BatchSize),
			zap.Duration("delay_between_commands", applied.DelayBetweenCommands),
			zap.Duration("delay_between_batches", applied.DelayBetweenBatches),
			zap.Duration("timeout_per_command", applied.TimeoutPerCommand),
			zap.Bool("skip_on_error", applied.SkipOnError))
	})
}

// forwardSignals maps the first interrupt to Stop and the second to an abort.
func forwardSignals(ctx context.Context, sigs <-chan os.Signal, sched *scheduler.Scheduler, abort context.CancelFunc) {
	stopped := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-sched.Done():
			return
		case <-sigs:
			if stopped {
				abort()
				return
			}
			stopped = true
			sched.Stop()
		}
	}
}

// readControls maps p, r and s lines on r to Pause, Resume and Stop.
func readControls(ctx context.Context, r io.Reader, sched *scheduler.Scheduler) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sched.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			applyControl(sched, line)
		}
	}
}

// controller is the part of the scheduler the keyboard drives.
type controller interface {
	Pause()
	Resume()
	Stop()
}

func applyControl(c controller, line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "p", "pause":
		c.Pause()
	case "r", "resume":
		c.Resume()
	case "s", "stop", "q":
		c.Stop()
	default:
		return false
	}
	return true
}

// writeReport stores rep as indented JSON. An empty out picks a timestamped
// file under dir, or under the XDG data dir when dir is empty too.
func writeReport(rep *scheduler.Report, out, dir string) (string, error) {
	if out == "" {
		if dir == "" {
			data, err := xdg.DataDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(data, "reports")
		}
		out = filepath.Join(dir, reportFileName(rep))
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return out, nil
}

func reportFileName(rep *scheduler.Report) string {
	ts := rep.StartTime
	if ts.IsZero() {
		ts = time.Now()
	}
	id := rep.RunID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("he-extraction-%s-%s.json", ts.UTC().Format("20060102-150405"), id)
}

// archiveReport saves rep to PostgreSQL when a DSN is configured. Failures
// are reported but never fail the run.
func archiveReport(ctx context.Context, rep *scheduler.Report, log *zap.Logger) {
	dsn, _ := resolveArchiveDSN()
	if dsn == "" {
		return
	}
	store, err := archive.Open(ctx, dsn, log.Named("archive"))
	if err != nil {
		pterm.Warning.Println(logging.PresentError("archive unavailable", err))
		return
	}
	defer store.Close()
	if err := store.SaveReport(ctx, rep); err != nil {
		pterm.Warning.Println(logging.PresentError("archive failed", err))
		return
	}
	pterm.Success.Println("Report archived as run " + rep.RunID)
}

func init() {
	rootCmd.AddCommand(extractCmd)
	f := extractCmd.Flags()
	def := scheduler.DefaultSettings()
	f.StringVarP(&extractCatalog, "catalog", "c", "", "Catalog file (.json, .yaml); the built-in catalog when empty")
	f.StringVarP(&extractOut, "out", "o", "", "Report file (default: timestamped file in output_dir)")
	f.IntVar(&extractBatchSize, "batch-size", def.BatchSize, "Commands per batch")
	f.DurationVar(&extractDelay, "delay", def.DelayBetweenCommands, "Pause between commands")
	f.DurationVar(&extractBatchDelay, "batch-delay", def.DelayBetweenBatches, "Pause between batches")
	f.DurationVar(&extractTimeout, "timeout", def.TimeoutPerCommand, "Deadline per command")
	f.IntVar(&extractMaxRetries, "max-retries", def.MaxRetries, "Attempts per command")
	f.BoolVar(&extractSkipErrors, "skip-errors", def.SkipOnError, "Keep going when a critical command fails")
	f.BoolVar(&extractNoBrowser, "no-browser", false, "Do not attach to Chrome; use config and keychain credentials only")
	f.BoolVar(&extractWatchConfig, "watch-config", false, "Apply run settings edited in the config file while running")
	f.BoolVar(&extractNoArchive, "no-archive", false, "Skip the PostgreSQL archive even when configured")
}
