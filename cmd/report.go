package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/phishscope/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Re-render a saved JSON report in another format",
	Example: `  phishscope analyze --file urls.txt --output results.json
  phishscope report --input results.json --format pdf --output results.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		if input == "" {
			return fmt.Errorf("--input is required")
		}
		format, output, err := resolveFormat(cmd)
		if err != nil {
			return err
		}

		rep, err := loadReport(cmd.InOrStdin(), input)
		if err != nil {
			return err
		}
		return writeReport(cmd, format, output, rep)
	},
}

// loadReport decodes a JSON report from path, or from stdin when path is "-".
func loadReport(stdin io.Reader, path string) (report.Report, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return report.Report{}, fmt.Errorf("failed to open report: %w", err)
		}
		defer f.Close()
		r = f
	}

	var rep report.Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return report.Report{}, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	// The summary is always derived from the results.
	rep.Summary = rep.Results.Summary()
	return rep, nil
}

func init() {
	reportCmd.Flags().StringP("input", "i", "", `JSON report produced by analyze or feed ("-" for stdin)`)
	addOutputFlags(reportCmd)
}
