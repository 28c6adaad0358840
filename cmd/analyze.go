package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	domain "github.com/khanhnv2901/phishscope/internal/domain/analysis"
	"github.com/khanhnv2901/phishscope/internal/feed"
	"github.com/khanhnv2901/phishscope/internal/report"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url...]",
	Short: "Analyse one or more URLs for phishing indicators",
	Long: `Analyse URLs given as arguments and/or listed in a file (one per line,
# comments allowed; use "-" to read from stdin). Each URL is decomposed, its
page title fetched, its TLS certificate inspected and a risk narrative
generated. Results are reported in input order.`,
	Example: `  phishscope analyze https://example.com
  phishscope analyze --file urls.txt --format md --output report.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		file, _ := cmd.Flags().GetString("file")
		urls, err := collectURLs(cmd.InOrStdin(), args, file)
		if err != nil {
			return err
		}
		format, output, err := resolveFormat(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var (
			printer  *progressPrinter
			onResult func(int, domain.AnalysisResult)
		)
		if progress, _ := cmd.Flags().GetBool("progress"); progress {
			printer = newProgressPrinter(cmd.ErrOrStderr(), len(urls), "analyze")
			printer.Start()
			onResult = func(_ int, r domain.AnalysisResult) {
				printer.Increment(!r.Failed(), r.AnalysisLatency.Seconds())
			}
		}

		results := appCtx.Services.Runner.RunBatchWithProgress(ctx, urls, onResult)
		if printer != nil {
			printer.Stop()
		}
		if ctx.Err() != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Interrupted, unfinished URLs are reported as cancelled\n", colorWarn("!"))
		}

		if err := writeReport(cmd, format, output, report.New(results)); err != nil {
			return err
		}
		if output != "" {
			printSummary(cmd.ErrOrStderr(), results)
		}
		return nil
	},
}

// collectURLs merges positional URLs with those listed in file. Blank
// arguments are skipped; the file follows the feed format.
func collectURLs(stdin io.Reader, args []string, file string) ([]string, error) {
	var urls []string
	for _, arg := range args {
		if u := strings.TrimSpace(arg); u != "" {
			urls = append(urls, u)
		}
	}

	if file != "" {
		var r io.Reader
		if file == "-" {
			r = stdin
		} else {
			f, err := os.Open(file)
			if err != nil {
				return nil, fmt.Errorf("failed to open URL file: %w", err)
			}
			defer f.Close()
			r = f
		}
		listed, err := feed.Parse(r, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to read URL file: %w", err)
		}
		urls = append(urls, listed...)
	}

	if len(urls) == 0 {
		return nil, sharedErrors.ErrMissingURLs
	}
	return urls, nil
}

func init() {
	analyzeCmd.Flags().StringP("file", "f", "", `file of URLs to analyse, one per line ("-" for stdin)`)
	analyzeCmd.Flags().Bool("progress", false, "show a progress line on stderr")
	addOutputFlags(analyzeCmd)
	addBatchFlags(analyzeCmd.Flags())
}
