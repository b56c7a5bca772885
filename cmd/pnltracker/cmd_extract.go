package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/ingest"
	"github.com/joseph-ayodele/pnl-tracker/internal/pipeline"
)

var (
	extractAdd        bool
	extractDuplicate  string
	extractConfidence float64
)

var parseCmd = &cobra.Command{
	Use:   "parse [file...]",
	Short: "Extract a trade from recognized text",
	Long: `Extract trade fields from text that was already recognized. Each file is
one document; with no files the document is read from stdin.

Examples:
  pnltracker parse summary.txt
  pbpaste | pnltracker parse --add`,
	RunE: runParse,
}

var scanCmd = &cobra.Command{
	Use:   "scan <image|dir>...",
	Short: "Recognize screenshots and extract their trades",
	Long: `Run tesseract over each screenshot (directories are walked) and print
what was extracted. With --add, trades that need no review are recorded.

Examples:
  pnltracker scan ~/Screenshots/close.png
  pnltracker scan --add --duplicate replace ~/Screenshots`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(parseCmd, scanCmd)
	for _, c := range []*cobra.Command{parseCmd, scanCmd} {
		c.Flags().BoolVar(&extractAdd, "add", false, "Record extracted trades in the book")
		c.Flags().StringVar(&extractDuplicate, "duplicate", "", "On duplicates: skip, replace or add (default from DUPLICATE_ACTION)")
	}
	parseCmd.Flags().Float64Var(&extractConfidence, "confidence", 0, "Recognition confidence (0-100) to attach to the text")
}

func runParse(cmd *cobra.Command, args []string) error {
	proc, err := newProcessor(nil)
	if err != nil {
		return err
	}

	var results []pipeline.Result
	if len(args) == 0 {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		results = append(results, proc.ProcessText(string(raw), extractConfidence, "stdin"))
	}
	for _, path := range args {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		results = append(results, proc.ProcessText(string(raw), extractConfidence, filepath.Base(path)))
	}
	return emitResults(cmd, results)
}

func runScan(cmd *cobra.Command, args []string) error {
	proc, err := newProcessor(nil)
	if err != nil {
		return err
	}

	var paths []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, stats, err := ingest.ScanDirectory(arg, true)
		if err != nil {
			return err
		}
		logger.Info("scan.directory", "root", arg, "matched", stats.Matched, "failed", stats.Failed)
		paths = append(paths, found...)
	}

	var results []pipeline.Result
	for _, p := range paths {
		res, err := proc.ProcessImage(cmd.Context(), p)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", p, err)
			continue
		}
		results = append(results, res)
	}
	return emitResults(cmd, results)
}

func emitResults(cmd *cobra.Command, results []pipeline.Result) error {
	if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if !extractAdd {
		return nil
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	action := extractDuplicate
	if action == "" {
		action = cfg.Ingest.DuplicateAction
	}
	for _, res := range results {
		switch {
		case res.Trade == nil:
			fmt.Fprintln(cmd.ErrOrStderr(), "skipped: critical field missing, enter the trade manually")
			continue
		case res.NeedsReview:
			fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: needs review\n", res.Trade.Symbol)
			continue
		}
		out, err := a.book.Add(cmd.Context(), *res.Trade, constants.ParseDuplicateAction(strings.ToLower(action)))
		if err != nil {
			return err
		}
		reportOutcome(cmd.ErrOrStderr(), out)
	}
	return nil
}
