package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
	"github.com/khanhnv2901/phishscope/internal/report"
)

const reportFilePerm = 0o644

// addOutputFlags registers --format and --output.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().String("format", "", "report format: text, json, yaml, md or pdf (default from --output extension, else text)")
	cmd.Flags().StringP("output", "o", "", "write the report to this file instead of stdout")
}

// resolveFormat picks the report format from --format, falling back to the
// extension of --output.
func resolveFormat(cmd *cobra.Command) (report.Format, string, error) {
	formatFlag, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	if formatFlag == "" && output != "" {
		formatFlag = strings.TrimPrefix(filepath.Ext(output), ".")
	}
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return "", "", err
	}
	if format == report.FormatPDF && output == "" {
		return "", "", errors.New("pdf output requires --output")
	}
	return format, output, nil
}

// writeReport renders rep to path, or to the command's stdout when path is
// empty.
func writeReport(cmd *cobra.Command, format report.Format, path string, rep report.Report) error {
	if path == "" {
		return report.Render(cmd.OutOrStdout(), format, rep)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, reportFilePerm)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := report.Render(f, format, rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s Report written to %s\n", colorSuccess("✓"), path)
	return nil
}

// printSummary writes a one-line outcome tally to w.
func printSummary(w io.Writer, results domain.BatchResult) {
	s := results.Summary()
	fmt.Fprintf(w, "%s %d analysed: %d %s, %d %s\n",
		colorInfo("→"), s.Total,
		s.Completed, formatStatusWithColor("completed"),
		s.Failed, formatStatusWithColor("failed"))
}
