package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// flagKeys maps command-line flags onto configuration keys. A flag only
// overrides the configuration when it is set explicitly.
var flagKeys = map[string]string{
	"log-level":        "log.level",
	"log-format":       "log.format",
	"concurrency":      "batch.concurrency",
	"rate-limit":       "batch.rate_limit",
	"analysis-timeout": "batch.analysis_timeout",
	"fetch-timeout":    "fetch.timeout",
	"block-private":    "fetch.block_private_networks",
	"tls-timeout":      "tls.handshake_timeout",
	"model":            "llm.model",
	"base-url":         "llm.base_url",
	"feed-url":         "feed.url",
	"feed-limit":       "feed.limit",
	"addr":             "api.addr",
	"max-batch":        "api.max_batch",
	"cors-origins":     "api.cors_origins",
	"shutdown-timeout": "api.shutdown_timeout",
}

// bindFlags binds every known flag present in flags to its viper key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("bind --%s: %w", f.Name, err)
		}
	})
	return bindErr
}

// addBatchFlags registers the flags shared by analyze and feed.
func addBatchFlags(flags *pflag.FlagSet) {
	flags.Int("concurrency", 0, "Maximum concurrent analyses (1-16)")
	flags.Float64("rate-limit", 0, "Analyses started per second (0 = unlimited)")
	flags.Duration("analysis-timeout", 0, "Per-URL analysis timeout")
	flags.Duration("fetch-timeout", 0, "Page fetch timeout")
	flags.Bool("block-private", false, "Refuse to connect to private and loopback addresses")
	flags.Duration("tls-timeout", 0, "TLS handshake timeout")
	flags.String("model", "", "Text-generation model")
	flags.String("base-url", "", "OpenAI-compatible API base URL")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML (secrets omitted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		out := cmd.OutOrStdout()
		if appCtx.ConfigFile != "" {
			fmt.Fprintf(out, "# config file: %s\n", appCtx.ConfigFile)
		}
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(appCtx.Config); err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return err
		}
		generation := colorWarn("disabled (no API key)")
		if appCtx.Config.GenerationEnabled() {
			generation = colorSuccess("enabled")
		}
		fmt.Fprintf(out, "# text generation: %s\n", generation)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}
