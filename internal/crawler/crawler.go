package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/sitemapper/internal/metrics"
)

// Crawler walks a site depth-first from a base URL.
type Crawler struct {
	cfg     Config
	fetcher Fetcher
	robots  RobotsPolicy
	ids     IDGenerator
	filter  *LinkFilter
	logger  *zap.Logger
}

// New wires a Crawler. robots and ids may be nil.
func New(cfg Config, fetcher Fetcher, robots RobotsPolicy, ids IDGenerator, logger *zap.Logger) (*Crawler, error) {
	if fetcher == nil {
		return nil, errors.New("crawler requires a fetcher")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := NewLinkFilter(cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if robots == nil {
		robots = &allowAllPolicy{}
	}
	return &Crawler{
		cfg:     cfg,
		fetcher: fetcher,
		robots:  robots,
		ids:     ids,
		filter:  filter,
		logger:  logger,
	}, nil
}

// Crawl discovers every same-site page reachable from baseURL. Per-page
// failures are logged and never abort the walk. A cancelled context stops the
// walk and returns the partial result alongside the context error.
func (c *Crawler) Crawl(ctx context.Context, baseURL string) (*Result, error) {
	base, err := ParseAbsolute(baseURL)
	if err != nil {
		return nil, err
	}
	s := newSession(c.newSessionID(), base, c.cfg.MaxPages)
	s.sortBroken = c.cfg.Concurrency > 1
	w := &walk{
		crawler: c,
		session: s,
		logger:  c.logger.With(zap.String("session_id", s.id), zap.String("base_url", base.String())),
		sem:     semaphore.NewWeighted(int64(c.cfg.Concurrency)),
	}

	w.logger.Info("Crawl started", zap.Int("concurrency", c.cfg.Concurrency))
	w.visit(ctx, base.String(), base.String())

	result := s.result()
	if c.cfg.CheckRedirects && ctx.Err() == nil {
		result.Redirects, result.FinalPages = w.checkRedirects(ctx, s.pages())
	}
	result.Fetches = s.fetches.Load()
	w.logger.Info("Crawl finished",
		zap.Int("pages", len(result.Pages)),
		zap.Int("off_domain", len(result.OffDomain)),
		zap.Int("broken_links", len(result.BrokenLinks)),
		zap.Int("redirects", len(result.Redirects)),
		zap.Int64("fetches", result.Fetches),
	)
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("crawl %s: %w", base, err)
	}
	return result, nil
}

// pageLinks extracts the links of an HTML response. Other content types
// yield ErrNonHTML.
func (c *Crawler) pageLinks(resp FetchResponse, pageURL string) ([]string, error) {
	if !resp.IsHTML() {
		return nil, fmt.Errorf("%w: %q", ErrNonHTML, resp.ContentType())
	}
	return ExtractLinks(bytes.NewReader(resp.Body), pageURL, c.filter, c.logger)
}

func (c *Crawler) newSessionID() string {
	if c.ids == nil {
		return ""
	}
	id, err := c.ids.NewID()
	if err != nil {
		c.logger.Warn("Failed to generate session id", zap.Error(err))
		return ""
	}
	return id
}

// walk is the state of one running crawl.
type walk struct {
	crawler *Crawler
	session *session
	logger  *zap.Logger
	sem     *semaphore.Weighted
}

func (w *walk) visit(ctx context.Context, parent, target string) {
	if ctx.Err() != nil {
		return
	}
	u, err := ParseAbsolute(target)
	if err != nil {
		w.logger.Debug("Skipping unparseable link", zap.String("url", target), zap.Error(err))
		return
	}
	key, err := NormalizeURL(target)
	if err != nil {
		w.logger.Debug("Skipping unnormalizable link", zap.String("url", target), zap.Error(err))
		return
	}

	if !SameSite(w.session.base, u) {
		w.checkOffDomain(ctx, parent, target, key)
		return
	}

	switch w.session.claimPage(key, target) {
	case claimRevisit:
		return
	case claimOverLimit:
		w.logger.Debug("Page limit reached; skipping", zap.String("url", target))
		return
	case claimNew:
	}

	if !w.crawler.robots.Allowed(ctx, target) {
		w.logger.Info("Blocked by robots.txt", zap.String("url", target))
		return
	}

	links, ok := w.fetchPage(ctx, parent, target, key)
	if !ok {
		return
	}
	w.descend(ctx, target, links)
}

func (w *walk) fetchPage(ctx context.Context, parent, target, key string) ([]string, bool) {
	resp, err := w.fetch(ctx, FetchRequest{
		URL:             target,
		Method:          http.MethodGet,
		FollowRedirects: true,
		Kind:            KindPage,
	})
	if err != nil {
		w.logger.Warn("Page fetch failed", zap.String("url", target), zap.Error(err))
		return nil, false
	}
	metrics.ObservePageVisit()
	logger := w.logger.With(zap.String("url", target), zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		logger.Info("Broken link found", zap.String("parent", parent))
		w.recordBroken(BrokenLink{Parent: parent, Target: target, StatusCode: resp.StatusCode})
		return nil, false
	}
	w.session.markFound(key, target)
	links, err := w.crawler.pageLinks(resp, target)
	switch {
	case errors.Is(err, ErrNonHTML):
		logger.Debug("Not descending into non-HTML page", zap.Error(err))
		return nil, false
	case err != nil:
		logger.Warn("Link extraction failed", zap.Error(err))
		return nil, false
	}
	logger.Debug("Page crawled", zap.Int("links", len(links)))
	return links, true
}

// descend visits the children of page. With concurrency 1 children are
// walked in document order; otherwise each child runs in its own goroutine
// and only the fetches are bounded by the semaphore.
func (w *walk) descend(ctx context.Context, page string, links []string) {
	if w.crawler.cfg.Concurrency <= 1 {
		for _, link := range links {
			w.visit(ctx, page, link)
		}
		return
	}
	var wg sync.WaitGroup
	for _, link := range links {
		wg.Go(func() {
			w.visit(ctx, page, link)
		})
	}
	wg.Wait()
}

func (w *walk) checkOffDomain(ctx context.Context, parent, target, key string) {
	if !w.session.claimOffDomain(key) || !w.crawler.cfg.CheckOffDomain {
		return
	}
	resp, err := w.fetch(ctx, FetchRequest{
		URL:             target,
		Method:          http.MethodGet,
		FollowRedirects: true,
		Kind:            KindOffDomain,
	})
	if err != nil {
		w.logger.Debug("Off-domain check failed", zap.String("url", target), zap.Error(err))
		return
	}
	if resp.StatusCode == http.StatusNotFound {
		w.logger.Info("Broken off-domain link found", zap.String("url", target), zap.String("parent", parent))
		w.recordBroken(BrokenLink{Parent: parent, Target: target, StatusCode: resp.StatusCode})
	}
}

func (w *walk) recordBroken(link BrokenLink) {
	w.session.recordBroken(link)
	metrics.ObserveBrokenLink(w.session.base.Hostname())
}

func (w *walk) fetch(ctx context.Context, request FetchRequest) (FetchResponse, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return FetchResponse{}, fmt.Errorf("acquire fetch slot: %w", err)
	}
	defer w.sem.Release(1)
	w.session.fetches.Add(1)
	return w.crawler.fetcher.Fetch(ctx, request)
}
