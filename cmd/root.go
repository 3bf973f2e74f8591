// Package cmd defines and implements the CLI commands for the sitemapper executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitemapper/internal/app"
	"github.com/JakeFAU/sitemapper/internal/config"
	"github.com/JakeFAU/sitemapper/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App is the application surface the commands use. Tests inject a fake.
type App interface {
	Discover(ctx context.Context, target string, mode app.Mode) (*app.Report, error)
	Logger() *zap.Logger
	Config() config.Config
	Close()
}

// newApp is the application factory, replaceable in tests.
var newApp = func(cfg config.Config, logger *zap.Logger) (App, error) {
	a, err := app.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "sitemapper",
		Short: "Discovers the URLs of a website from its sitemaps or by crawling it.",
		Long: `sitemapper finds every page of a website. It reads the sitemaps
declared in robots.txt or served at well-known paths and, when a site has none,
crawls same-site links while counting visits and recording broken links and
redirects.`,
		SilenceUsage: true,

		// Runs after flags are parsed and before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newApp(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML, JSON or TOML)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.Bool("dev", false, "human-readable development logging")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.Int("concurrency", 0, "concurrent fetches while crawling (1 walks pages in order)")
	flags.String("user-agent", "", "User-Agent header for outbound requests")

	cmd.AddCommand(
		newDiscoverCmd(),
		newModeCmd(app.ModeSitemap, "Lists the URLs declared in a site's sitemaps"),
		newModeCmd(app.ModeCrawl, "Crawls a site and reports pages, broken links and redirects"),
		newModeCmd(app.ModeBroken, "Checks the links on a single page"),
		newServeCmd(),
	)
	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
