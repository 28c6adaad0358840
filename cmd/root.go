package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/khanhnv2901/phishscope/internal/application"
	"github.com/khanhnv2901/phishscope/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "phishscope",
	Short:         "Phishing analysis for URLs: page title, TLS certificate and an AI-written risk narrative",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		appCtx, err := newAppContext(cmd)
		if err != nil {
			return err
		}
		storeAppContext(cmd, appCtx)
		appCtx.Logger.Debug("configuration loaded",
			zap.String("config_file", appCtx.ConfigFile),
			zap.Bool("generation_enabled", appCtx.Config.GenerationEnabled()),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

// newAppContext resolves configuration from defaults, the config file, the
// environment and cmd's flags, then wires the services.
func newAppContext(cmd *cobra.Command) (*AppContext, error) {
	v, err := config.New()
	if err != nil {
		return nil, err
	}
	configFile, err := readConfigFile(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logger, err := application.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	services, err := application.NewContainer(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &AppContext{
		Logger:     logger,
		Config:     cfg,
		ConfigFile: configFile,
		Services:   services,
	}, nil
}

// readConfigFile loads path, or $HOME/.phishscope.yaml when path is empty.
// A missing default file is not an error.
func readConfigFile(v *viper.Viper, path string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("$HOME")
		v.SetConfigName(".phishscope")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", colorError("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.phishscope.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: json or console")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
