// Package cmd implements the websight command line.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/websight/internal/api"
	"github.com/JakeFAU/websight/internal/config"
	"github.com/JakeFAU/websight/internal/logging"
	"github.com/JakeFAU/websight/internal/probe"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is what subcommands use. Tests inject a fake through newApp.
type App interface {
	Config() config.Config
	Logger() *zap.Logger
	Clock() probe.Clock
	Session() api.Session
	Prober() api.Prober
	Exporter() api.Exporter
	Close()
}

// newApp is the application factory. It's a variable so we can
// replace it with a fake factory in our tests.
var newApp = func(ctx context.Context, cfgPath string) (App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	svc, err := buildServices(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return svc, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "websight",
		Short: "Probe websites for latency, TLS, SEO, and server location.",
		Long: `websight probes a website on demand and reports its HTTP status and load
time, TLS certificate issuer and expiry, page title and meta description, and
the approximate location of the serving IP. Records accumulate for the
session and can be exported as CSV.`,
		SilenceUsage: true,

		// Runs before the subcommand's RunE; builds and injects the application.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
				_ = appInstance.Logger().Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); WEBSIGHT_* env vars override it")

	cmd.AddCommand(newProbeCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

func appFrom(cmd *cobra.Command) (App, error) {
	appInstance, ok := cmd.Context().Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
