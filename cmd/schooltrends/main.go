// Package main provides the entry point for the school profile
// extraction tool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jshin42/highschooltrends/internal/config"
	"github.com/jshin42/highschooltrends/internal/debug"
	"github.com/jshin42/highschooltrends/internal/evaluation"
	"github.com/jshin42/highschooltrends/internal/observe"
	"github.com/jshin42/highschooltrends/internal/pipeline"
	"github.com/jshin42/highschooltrends/internal/progress"
	"github.com/jshin42/highschooltrends/internal/report"
	"github.com/jshin42/highschooltrends/internal/schema"
	"github.com/jshin42/highschooltrends/internal/sink"
	"github.com/jshin42/highschooltrends/internal/uniqueness"
)

type cliFlags struct {
	configPath    *string
	snapshotsDir  *string
	sourceYear    *int
	outputDir     *string
	format        *string
	concurrency   *int
	noProgress    *bool
	debugMode     *bool
	debugFullMode *bool
	strictMode    *bool
	verbose       *bool
	goldenPath    *string
	baselinePath  *string
}

func parseFlags() *cliFlags {
	return &cliFlags{
		configPath:    flag.String("config", "config.toml", "Path to configuration file"),
		snapshotsDir:  flag.String("snapshots", "", "Directory of captured profile documents (<slug>.html)"),
		sourceYear:    flag.Int("year", 0, "Source year for this snapshot batch (overrides config)"),
		outputDir:     flag.String("output", "", "Output directory for records and reports (overrides config)"),
		format:        flag.String("format", "all", "Report format: all, md, json"),
		concurrency:   flag.Int("concurrency", 0, "Worker count (overrides config)"),
		noProgress:    flag.Bool("no-progress", false, "Disable progress bar (useful for CI)"),
		debugMode:     flag.Bool("debug", false, "Enable debug session logging"),
		debugFullMode: flag.Bool("debug-full", false, "Enable debug logging with ranking-section evidence capture"),
		strictMode:    flag.Bool("strict", false, "Exit non-zero when hard ranking conflicts are found"),
		verbose:       flag.Bool("verbose", false, "Log per-field extraction events"),
		goldenPath:    flag.String("golden", "", "Golden dataset file; batch results are checked against it"),
		baselinePath:  flag.String("baseline", "", "Baseline scores file; regressions vs the previous batch are reported and the baseline updated"),
	}
}

func main() {
	flags := parseFlags()
	flag.Parse()

	if *flags.snapshotsDir == "" {
		fmt.Fprintf(os.Stderr, "Error: -snapshots is required\n")
		os.Exit(1)
	}

	formats, err := parseFormats(*flags.format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing formats: %v\n", err)
		os.Exit(1)
	}

	cfg, err := loadConfig(*flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *flags.outputDir != "" {
		cfg.General.OutputDir = *flags.outputDir
	}
	if *flags.sourceYear != 0 {
		cfg.General.SourceYear = *flags.sourceYear
	}
	if *flags.concurrency > 0 {
		cfg.General.Concurrency = *flags.concurrency
	}
	if cfg.General.SourceYear == 0 {
		fmt.Fprintf(os.Stderr, "Error: source year not set (use -year or config)\n")
		os.Exit(1)
	}

	finalOutputDir, err := ensureOutputDir(cfg.General.OutputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}
	cfg.General.OutputDir = finalOutputDir

	enableDebug := *flags.debugMode || *flags.debugFullMode
	debugLogger := debug.NewLogger(enableDebug, *flags.debugFullMode, cfg.General.OutputDir)

	level := zerolog.WarnLevel
	if *flags.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	obs := observe.NewLogging(logger)

	captures, err := pipeline.LoadCaptures(*flags.snapshotsDir, cfg.General.SourceYear)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning snapshots: %v\n", err)
		os.Exit(1)
	}
	if len(captures) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no .html documents found in %s\n", *flags.snapshotsDir)
		os.Exit(1)
	}

	printBanner()
	fmt.Printf("Extracting %d documents (year %d) with %d workers, timeout %s\n",
		len(captures), cfg.General.SourceYear, cfg.General.Concurrency, cfg.General.Timeout)
	if enableDebug {
		fmt.Printf("Debug logging to: %s/\n", debugLogger.GetOutputPath())
	}
	fmt.Println()

	recordsPath := filepath.Join(cfg.General.OutputDir, "records.jsonl")
	out, err := sink.NewJSONL(recordsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening record sink: %v\n", err)
		os.Exit(1)
	}

	prog := progress.NewManager(len(captures), !*flags.noProgress)
	runner := pipeline.NewRunner(cfg, out, prog, debugLogger, obs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx, captures); err != nil {
		fmt.Fprintf(os.Stderr, "Batch interrupted: %v\n", err)
	}
	if err := out.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close record sink: %v\n", err)
	}

	if enableDebug {
		if err := debugLogger.Finalize(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to write debug log: %v\n", err)
		} else {
			fmt.Printf("✓ Debug logs written to: %s/\n", debugLogger.GetOutputPath())
		}
	}

	conflicts := runner.Validator().Conflicts()
	generateReports(formats, runner, conflicts, debugLogger, cfg.General.OutputDir)
	fmt.Printf("✓ Records written to: %s\n", recordsPath)

	if *flags.goldenPath != "" || *flags.baselinePath != "" {
		runEvaluation(runner, *flags.goldenPath, *flags.baselinePath, recordsPath)
	}

	if *flags.strictMode && hasFatalConflict(conflicts) {
		fmt.Fprintf(os.Stderr, "Strict mode: hard ranking conflicts present\n")
		os.Exit(2)
	}
}

func printBanner() {
	fmt.Println(`
╔══════════════════════════════════════════════════════════════╗
║              School Profile Extraction Tool                  ║
║     Snapshots in, confidence-scored records out              ║
╚══════════════════════════════════════════════════════════════╝`)
	fmt.Println()
}

// loadConfig falls back to built-in defaults when the default config file
// is absent; an explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == "config.toml" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func parseFormats(s string) ([]string, error) {
	validFormats := map[string]struct{}{
		"all":  {},
		"md":   {},
		"json": {},
	}

	input := strings.ToLower(strings.TrimSpace(s))
	if input == "" {
		return nil, fmt.Errorf("format cannot be empty (valid values: all, md, json)")
	}

	seen := make(map[string]struct{})
	formats := make([]string, 0, 3)
	for _, raw := range strings.Split(s, ",") {
		f := strings.ToLower(strings.TrimSpace(raw))
		if f == "" {
			return nil, fmt.Errorf("format list contains an empty entry")
		}
		if _, ok := validFormats[f]; !ok {
			return nil, fmt.Errorf("invalid format: %s (valid values: all, md, json)", f)
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		formats = append(formats, f)
	}

	if len(formats) == 1 && formats[0] == "all" {
		return formats, nil
	}
	if _, hasAll := seen["all"]; hasAll {
		return nil, fmt.Errorf("format 'all' cannot be combined with other formats")
	}
	return formats, nil
}

func generateReports(formats []string, runner *pipeline.Runner, conflicts []uniqueness.Conflict, dbg *debug.Logger, outputDir string) {
	fmt.Println("\nGenerating reports...")
	gen := report.NewGenerator(runner.GetCollector(), conflicts, dbg, outputDir)

	for _, f := range formats {
		switch f {
		case "md":
			if err := gen.GenerateMarkdown(); err != nil {
				fmt.Fprintf(os.Stderr, "Error generating Markdown report: %v\n", err)
			} else {
				fmt.Printf("✓ Generated Markdown report: %s/report.md\n", outputDir)
			}
		case "json":
			if err := gen.GenerateJSON(); err != nil {
				fmt.Fprintf(os.Stderr, "Error generating JSON report: %v\n", err)
			} else {
				fmt.Printf("✓ Generated JSON report: %s/report.json\n", outputDir)
			}
		case "all":
			if err := gen.GenerateAll(); err != nil {
				fmt.Fprintf(os.Stderr, "Error generating reports: %v\n", err)
			} else {
				fmt.Printf("✓ Generated all reports in: %s/\n", outputDir)
			}
		}
	}

	printSummary(runner, conflicts)
}

func printSummary(runner *pipeline.Runner, conflicts []uniqueness.Conflict) {
	summary := runner.GetCollector().ComputeSummary()

	fmt.Println("\n═══════════════════════════════════════════════════════════════")
	fmt.Println("                     EXTRACTION SUMMARY")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("  Documents: %d (%d extracted, %d partial, %d failed)\n",
		summary.TotalDocuments, summary.Extracted, summary.Partial, summary.Failed)
	fmt.Printf("  Accepted: %d (%.1f%%)  Unranked: %d\n",
		summary.Accepted, summary.AcceptanceRate, summary.Unranked)
	fmt.Printf("  Avg Confidence: %.1f (min %.1f, max %.1f)\n",
		summary.AvgConfidence, summary.MinConfidence, summary.MaxConfidence)
	fmt.Printf("  Per-document latency: p50 %s, p95 %s\n",
		report.FormatLatency(summary.P50Elapsed), report.FormatLatency(summary.P95Elapsed))
	fmt.Printf("  Ranking conflicts: %d\n", len(conflicts))
}

// runEvaluation checks the batch against the golden dataset and previous
// baseline, then rolls the baseline forward.
func runEvaluation(runner *pipeline.Runner, goldenPath, baselinePath, recordsPath string) {
	mgr := evaluation.NewGoldenManager(goldenPath, baselinePath)
	results := runner.GetCollector().GetResults()

	if goldenPath != "" {
		if err := mgr.LoadDataset(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load golden dataset: %v\n", err)
		} else {
			records, err := loadRecords(recordsPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to re-read records: %v\n", err)
			} else {
				printFindings("Golden check", mgr.CheckGolden(records))
			}
		}
	}

	if baselinePath != "" {
		if err := mgr.LoadBaseline(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load baseline: %v\n", err)
			return
		}
		printFindings("Regression check", mgr.DetectRegressions(results))
		if err := mgr.UpdateBaseline(results); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to update baseline: %v\n", err)
		} else {
			fmt.Printf("✓ Baseline updated: %s\n", baselinePath)
		}
	}
}

func printFindings(label string, findings []evaluation.RegressionResult) {
	if len(findings) == 0 {
		fmt.Printf("✓ %s: no findings\n", label)
		return
	}
	fmt.Printf("⚠ %s: %d finding(s)\n", label, len(findings))
	for _, f := range findings {
		if f.Detail != "" {
			fmt.Printf("  [%s] %s %s: %s\n", f.Severity, f.Slug, f.Metric, f.Detail)
		} else {
			fmt.Printf("  [%s] %s %s: %.1f -> %.1f (-%.1f%%)\n",
				f.Severity, f.Slug, f.Metric, f.BaselineValue, f.CurrentValue, f.ChangePercent)
		}
	}
}

func loadRecords(path string) (map[string]*schema.SchoolRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	records := make(map[string]*schema.SchoolRecord)
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec schema.SchoolRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, err
		}
		r := rec
		records[rec.Slug] = &r
	}
	return records, nil
}

func hasFatalConflict(conflicts []uniqueness.Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == uniqueness.SeverityFatal {
			return true
		}
	}
	return false
}

// ensureOutputDir creates a timestamped subdirectory for results
func ensureOutputDir(baseDir string) (string, error) {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	sessionDir := filepath.Join(baseDir, timestamp)

	if err := os.MkdirAll(sessionDir, 0750); err != nil {
		return "", err
	}

	return sessionDir, nil
}
