package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khanhnv2901/phishscope/internal/application"
	"github.com/khanhnv2901/phishscope/internal/config"
)

// AppContext carries the resolved configuration and services for a command.
type AppContext struct {
	Logger     *zap.Logger
	Config     *config.Config
	ConfigFile string // empty when running on defaults
	Services   *application.Container
}

type appContextKey struct{}

// globalAppContext backs commands invoked without a cobra context.
var globalAppContext *AppContext

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil && cmd.Context() != nil {
		if appCtx, ok := cmd.Context().Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	return globalAppContext
}
