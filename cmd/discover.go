package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitemapper/internal/app"
	"github.com/JakeFAU/sitemapper/internal/report"
)

type outputOptions struct {
	format string
	output string
}

func (o *outputOptions) register(cmd *cobra.Command, defaultFormat report.Format) {
	cmd.Flags().StringVarP(&o.format, "format", "f", string(defaultFormat), "report format (markdown, json, text)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write the report to this file instead of stdout")
}

// newDiscoverCmd creates the 'discover' subcommand.
func newDiscoverCmd() *cobra.Command {
	var (
		mode string
		out  outputOptions
	)
	cmd := &cobra.Command{
		Use:   "discover <url>",
		Short: "Discovers a site's URLs",
		Long: `Discovers a site's URLs. In auto mode the sitemaps are read first
and the site is crawled only when they yield nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := app.ParseMode(mode)
			if err != nil {
				return err
			}
			return runDiscover(cmd, args[0], m, out)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(app.ModeAuto), "discovery mode (auto, sitemap, crawl, broken)")
	out.register(cmd, report.FormatMarkdown)
	return cmd
}

// newModeCmd creates a shortcut subcommand that runs discover in one mode.
func newModeCmd(mode app.Mode, short string) *cobra.Command {
	var out outputOptions
	cmd := &cobra.Command{
		Use:   string(mode) + " <url>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiscover(cmd, args[0], mode, out)
		},
	}
	defaultFormat := report.FormatMarkdown
	if mode == app.ModeSitemap {
		defaultFormat = report.FormatText
	}
	out.register(cmd, defaultFormat)
	return cmd
}

func runDiscover(cmd *cobra.Command, target string, mode app.Mode, out outputOptions) error {
	format, err := report.ParseFormat(out.format)
	if err != nil {
		return err
	}
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	rep, err := appInstance.Discover(cmd.Context(), target, mode)
	if err != nil {
		return fmt.Errorf("discover %s: %w", target, err)
	}
	for _, warning := range rep.Warnings {
		logger.Warn("Discovery warning", zap.String("warning", warning))
	}

	return writeReport(cmd.OutOrStdout(), out.output, format, rep, logger)
}

func writeReport(stdout io.Writer, path string, format report.Format, rep *app.Report, logger *zap.Logger) error {
	dest := stdout
	if path != "" {
		f, err := os.Create(path) //nolint:gosec // path is supplied by the operator
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil {
				logger.Warn("Failed to close output file", zap.String("path", path), zap.Error(cerr))
			}
		}()
		dest = f
	}
	w, err := report.NewWriter(format, dest)
	if err != nil {
		return err
	}
	if err := w.Write(rep); err != nil {
		return err
	}
	if path != "" {
		logger.Info("Report written", zap.String("path", path), zap.String("format", string(format)))
	}
	return nil
}
