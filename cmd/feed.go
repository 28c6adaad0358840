package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/phishscope/internal/report"
	sharedErrors "github.com/khanhnv2901/phishscope/internal/shared/errors"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Fetch the configured threat-intel feed and analyse every URL it lists",
	Long: `Download the URL feed (feed.url, PHISHSCOPE_FEED_URL or --feed-url) and
analyse each entry. An unreachable feed is reported in the output rather than
treated as a failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		source := appCtx.Services.Feed
		if source.URL() == "" {
			return fmt.Errorf("%w: set feed.url or --feed-url", sharedErrors.ErrFeedNotConfigured)
		}
		format, output, err := resolveFormat(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.ErrOrStderr(), "%s Fetching feed %s\n", colorInfo("→"), source.URL())
		run := appCtx.Services.Runner.RunFeed(ctx, source)
		if run.FeedError != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s Feed unavailable: %s\n", colorWarn("!"), run.FeedError)
		}

		rep := report.New(run.Results)
		rep.FeedURL = source.URL()
		rep.FeedError = run.FeedError
		if err := writeReport(cmd, format, output, rep); err != nil {
			return err
		}
		if output != "" {
			printSummary(cmd.ErrOrStderr(), run.Results)
		}
		return nil
	},
}

func init() {
	feedCmd.Flags().String("feed-url", "", "feed URL (overrides feed.url)")
	feedCmd.Flags().Int("feed-limit", 0, "analyse at most this many feed entries (0 = all)")
	addOutputFlags(feedCmd)
	addBatchFlags(feedCmd.Flags())
}
