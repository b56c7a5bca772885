package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pnl-tracker/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every trade as JSON or a spreadsheet",
	Long: `Export every trade. JSON exports can be imported again; xlsx exports hold
a Trades sheet and a Weekly summary sheet.

Examples:
  pnltracker export > backup.json
  pnltracker export --format xlsx --out trades.xlsx`,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import trades from a JSON export",
	Long: `Import trades from a JSON export (or a bare array of trades). The whole
file is validated first; trades that duplicate one already in the book are
skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default: stdout for json, bitget-pnl-export-<date>.xlsx for xlsx)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	now := time.Now()
	list := a.book.Snapshot().Trades()

	var data []byte
	switch strings.ToLower(exportFormat) {
	case "json":
		data, err = export.ExportJSON(list, now)
	case "xlsx":
		data, err = export.TradesXLSX(list)
		if exportOut == "" {
			exportOut = "bitget-pnl-export-" + now.Format("2006-01-02") + ".xlsx"
		}
	default:
		return fmt.Errorf("unknown export format %q", exportFormat)
	}
	if err != nil {
		return err
	}

	if exportOut == "" {
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "exported %d trade(s) to %s\n", len(list), exportOut)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	var raw []byte
	var err error
	if args[0] == "-" {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}

	list, err := export.ImportJSON(raw, time.Now())
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.book.Import(cmd.Context(), list)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "imported %d trade(s), skipped %d duplicate(s)\n", out.Added, out.Dropped)
	if out.Warning != nil {
		logger.Warn("import kept locally only", "error", out.Warning)
	}
	return nil
}
