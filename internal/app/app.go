// Package app wires the discovery services together and runs a discovery in
// one of its modes. It is shared by the CLI and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sitemapper/internal/clock/system"
	"github.com/JakeFAU/sitemapper/internal/config"
	"github.com/JakeFAU/sitemapper/internal/crawler"
	collyfetcher "github.com/JakeFAU/sitemapper/internal/fetcher/colly"
	"github.com/JakeFAU/sitemapper/internal/id/uuid"
	"github.com/JakeFAU/sitemapper/internal/sitemap"
)

// Mode selects the discovery strategy.
type Mode string

const (
	// ModeAuto tries sitemaps and falls back to crawling when they yield nothing.
	ModeAuto Mode = "auto"
	// ModeSitemap only reads sitemaps.
	ModeSitemap Mode = "sitemap"
	// ModeCrawl only crawls pages.
	ModeCrawl Mode = "crawl"
	// ModeBroken checks the links of a single page.
	ModeBroken Mode = "broken"
)

// ErrUnknownMode is returned by ParseMode for unsupported modes.
var ErrUnknownMode = errors.New("unknown mode")

// ParseMode converts s into a Mode. An empty string selects ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeSitemap, ModeCrawl, ModeBroken:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Report is the outcome of one discovery.
type Report struct {
	SessionID   string               `json:"session_id"`
	Target      string               `json:"target"`
	Mode        Mode                 `json:"mode"`
	Strategy    Mode                 `json:"strategy"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
	URLs        []string             `json:"urls"`
	Sitemaps    []string             `json:"sitemaps,omitempty"`
	Pages       []crawler.PageVisit  `json:"pages,omitempty"`
	OffDomain   []crawler.PageVisit  `json:"off_domain,omitempty"`
	BrokenLinks []crawler.BrokenLink `json:"broken_links,omitempty"`
	Redirects   []crawler.Redirect   `json:"redirects,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// Duration returns how long the discovery took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// App holds the long-lived services used to run discoveries.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	crawler *crawler.Crawler
	loader  *sitemap.Loader
	ids     crawler.IDGenerator
	clock   crawler.Clock
}

// New builds an App that fetches over HTTP with Colly.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fetcher := collyfetcher.New(cfg.FetcherConfig(), logger.Named("fetcher"))
	return NewWithFetcher(cfg, fetcher, logger)
}

// NewWithFetcher builds an App around an arbitrary Fetcher.
func NewWithFetcher(cfg config.Config, fetcher crawler.Fetcher, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ids := uuid.New()
	robots := crawler.NewRobotsEnforcer(cfg.Crawler.RespectRobots, fetcher, cfg.HTTP.UserAgent, logger.Named("robots"))
	c, err := crawler.New(cfg.CrawlerConfig(), fetcher, robots, ids, logger.Named("crawler"))
	if err != nil {
		return nil, fmt.Errorf("init crawler: %w", err)
	}
	return &App{
		cfg:     cfg,
		logger:  logger,
		crawler: c,
		loader:  sitemap.NewLoader(cfg.SitemapConfig(), fetcher, nil, logger.Named("sitemap")),
		ids:     ids,
		clock:   system.New(),
	}, nil
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Config returns the configuration the App was built with.
func (a *App) Config() config.Config {
	return a.cfg
}

// Discover runs a discovery against target. Soft failures such as a missing
// sitemap end up in Report.Warnings; an error is returned only for invalid
// input, an unreachable target in ModeBroken, or a cancelled context.
func (a *App) Discover(ctx context.Context, target string, mode Mode) (*Report, error) {
	mode, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}
	target = crawler.EnsureScheme(target)
	if _, err = crawler.ParseAbsolute(target); err != nil {
		return nil, err
	}

	id, err := a.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	report := &Report{
		SessionID: id,
		Target:    target,
		Mode:      mode,
		StartedAt: a.clock.Now(),
	}
	logger := a.logger.With(
		zap.String("session_id", id),
		zap.String("target", target),
		zap.String("mode", string(mode)),
	)
	logger.Info("Discovery started")

	switch mode {
	case ModeSitemap:
		err = a.fromSitemaps(ctx, report, logger)
	case ModeCrawl:
		err = a.fromCrawl(ctx, report)
	case ModeBroken:
		err = a.fromLinkCheck(ctx, report)
	default:
		err = a.fromSitemaps(ctx, report, logger)
		if err == nil && len(report.URLs) == 0 {
			logger.Info("No sitemap URLs; falling back to crawl")
			err = a.fromCrawl(ctx, report)
		}
	}
	report.FinishedAt = a.clock.Now()
	if err != nil {
		logger.Warn("Discovery failed", zap.Error(err))
		return report, err
	}
	logger.Info("Discovery finished",
		zap.String("strategy", string(report.Strategy)),
		zap.Int("urls", len(report.URLs)),
		zap.Int("broken_links", len(report.BrokenLinks)),
		zap.Duration("elapsed", report.Duration()),
	)
	return report, nil
}

func (a *App) fromSitemaps(ctx context.Context, report *Report, logger *zap.Logger) error {
	report.Strategy = ModeSitemap
	result, err := a.loader.Discover(ctx, report.Target)
	if result != nil {
		report.URLs = result.URLs
		report.Sitemaps = result.Sitemaps
	}
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("sitemap discovery: %w", ctx.Err())
	case errors.Is(err, sitemap.ErrNoSitemap):
		logger.Debug("Sitemap discovery found nothing", zap.Error(err))
		report.Warnings = append(report.Warnings, err.Error())
		return nil
	default:
		return fmt.Errorf("sitemap discovery: %w", err)
	}
}

func (a *App) fromCrawl(ctx context.Context, report *Report) error {
	report.Strategy = ModeCrawl
	result, err := a.crawler.Crawl(ctx, report.Target)
	if result != nil {
		a.applyCrawl(report, result)
	}
	if err != nil {
		return fmt.Errorf("crawl: %w", err)
	}
	return nil
}

func (a *App) fromLinkCheck(ctx context.Context, report *Report) error {
	report.Strategy = ModeBroken
	result, err := a.crawler.CheckLinks(ctx, report.Target)
	if result != nil {
		a.applyCrawl(report, result)
	}
	if err != nil {
		return fmt.Errorf("check links: %w", err)
	}
	return nil
}

func (a *App) applyCrawl(report *Report, result *crawler.Result) {
	report.URLs = result.Discovered
	report.Pages = result.Pages
	report.OffDomain = result.OffDomain
	report.BrokenLinks = result.BrokenLinks
	report.Redirects = result.Redirects
}

// Close flushes the logger.
func (a *App) Close() {
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("Error syncing logger on shutdown", zap.Error(err))
	}
}
