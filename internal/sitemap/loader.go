package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/sitemapper/internal/crawler"
	"github.com/JakeFAU/sitemapper/internal/metrics"
)

const (
	sitemapAccept = "application/xml,text/xml;q=0.9,*/*;q=0.8"
	// maxUncompressed is the sitemaps.org size limit for one document.
	maxUncompressed = 50 << 20
)

var gzipMagic = []byte{0x1f, 0x8b}

// Where the URLs of a Result came from.
const (
	SourceRobots    = "robots"
	SourceDefault   = "default"
	SourceWellKnown = "well-known"
)

// Config controls sitemap discovery.
type Config struct {
	// DefaultPath is tried when robots.txt declares no sitemap.
	DefaultPath string
	// WellKnownPaths are probed in order when nothing else yielded URLs.
	WellKnownPaths []string
	// Concurrency bounds sibling sitemap fetches per index level; 0 means
	// unbounded.
	Concurrency int
	// RestrictToPath keeps only URLs under the target's path.
	RestrictToPath bool
}

// DefaultConfig returns the stock discovery settings.
func DefaultConfig() Config {
	return Config{
		DefaultPath: "/sitemap.xml",
		WellKnownPaths: []string{
			"/sitemap_index.xml",
			"/sitemap-index.xml",
			"/sitemap1.xml",
			"/sitemap/sitemap.xml",
		},
		RestrictToPath: true,
	}
}

// Result is the outcome of a discovery.
type Result struct {
	Origin   string   `json:"origin"`
	Source   string   `json:"source,omitempty"`
	Sitemaps []string `json:"sitemaps,omitempty"`
	URLs     []string `json:"urls"`
}

// Loader discovers page URLs from a site's sitemaps.
type Loader struct {
	cfg     Config
	fetcher crawler.Fetcher
	parser  Parser
	logger  *zap.Logger
}

// NewLoader wires a Loader. A nil parser selects the HybridParser.
func NewLoader(cfg Config, fetcher crawler.Fetcher, parser Parser, logger *zap.Logger) *Loader {
	if parser == nil {
		parser = HybridParser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultPath == "" {
		cfg.DefaultPath = DefaultConfig().DefaultPath
	}
	return &Loader{cfg: cfg, fetcher: fetcher, parser: parser, logger: logger}
}

type attempt struct {
	source string
	locs   []string
}

// Discover returns the deduplicated page URLs advertised by target's site.
// Sitemaps declared in robots.txt are tried first, then the default path,
// then the well-known paths. Failing branches are tolerated as long as some
// branch yields URLs; otherwise ErrNoSitemap is returned together with every
// branch error.
func (l *Loader) Discover(ctx context.Context, target string) (*Result, error) {
	base, err := crawler.ParseAbsolute(target)
	if err != nil {
		return nil, err
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	result := &Result{Origin: crawler.Origin(base)}
	logger := l.logger.With(zap.String("origin", result.Origin))
	r := &resolution{loader: l, origin: origin, logger: logger}

	var errs error
	declared, err := l.robotsSitemaps(ctx, result.Origin)
	if err != nil {
		logger.Warn("robots.txt unavailable", zap.Error(err))
		errs = multierr.Append(errs, err)
	}

	attempts := make([]attempt, 0, len(l.cfg.WellKnownPaths)+2)
	if len(declared) > 0 {
		attempts = append(attempts, attempt{source: SourceRobots, locs: declared})
	}
	attempts = append(attempts, attempt{source: SourceDefault, locs: []string{l.cfg.DefaultPath}})
	for _, p := range l.cfg.WellKnownPaths {
		if p != l.cfg.DefaultPath {
			attempts = append(attempts, attempt{source: SourceWellKnown, locs: []string{p}})
		}
	}

	for _, a := range attempts {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("discover sitemaps for %s: %w", result.Origin, err)
		}
		b := r.resolveAll(ctx, r.absolute(a.locs))
		errs = multierr.Append(errs, b.err)
		urls := dedupe(l.restrict(base, b.urls))
		if len(urls) == 0 {
			logger.Debug("Sitemap source yielded no URLs", zap.String("source", a.source), zap.Strings("locs", a.locs))
			continue
		}
		result.Source = a.source
		result.Sitemaps = b.sitemaps
		result.URLs = urls
		if b.err != nil {
			logger.Warn("Some sitemaps failed", zap.Error(b.err))
		}
		logger.Info("Sitemap discovery finished",
			zap.String("source", a.source),
			zap.Int("sitemaps", len(b.sitemaps)),
			zap.Int("urls", len(urls)),
		)
		return result, nil
	}

	if errs == nil {
		return result, fmt.Errorf("%w for %s", ErrNoSitemap, result.Origin)
	}
	return result, fmt.Errorf("%w for %s: %w", ErrNoSitemap, result.Origin, errs)
}

func (l *Loader) robotsSitemaps(ctx context.Context, origin string) ([]string, error) {
	resp, err := l.fetcher.Fetch(ctx, crawler.FetchRequest{
		URL:             origin + "/robots.txt",
		Method:          http.MethodGet,
		FollowRedirects: true,
		Accept:          "text/plain",
		Kind:            crawler.KindRobots,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		l.logger.Debug("No robots.txt", zap.String("origin", origin), zap.Int("status", resp.StatusCode))
		return nil, nil
	}
	return SitemapsFromRobots(resp.Body), nil
}

func (l *Loader) restrict(base *url.URL, urls []string) []string {
	prefix := strings.TrimSuffix(base.EscapedPath(), "/")
	if !l.cfg.RestrictToPath || prefix == "" {
		return urls
	}
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		p := u.EscapedPath()
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			out = append(out, raw)
		}
	}
	return out
}

// branch is the outcome of resolving one sitemap and its descendants.
type branch struct {
	urls     []string
	sitemaps []string
	err      error
}

// resolution is the state shared by one Discover call.
type resolution struct {
	loader  *Loader
	origin  *url.URL
	logger  *zap.Logger
	visited sync.Map
}

// resolveAll resolves siblings concurrently and merges their results in
// input order.
func (r *resolution) resolveAll(ctx context.Context, locs []string) branch {
	results := make([]branch, len(locs))
	var g errgroup.Group
	if r.loader.cfg.Concurrency > 0 {
		g.SetLimit(r.loader.cfg.Concurrency)
	}
	for i, loc := range locs {
		g.Go(func() error {
			results[i] = r.resolve(ctx, loc)
			return nil
		})
	}
	_ = g.Wait()

	var merged branch
	for _, b := range results {
		merged.urls = append(merged.urls, b.urls...)
		merged.sitemaps = append(merged.sitemaps, b.sitemaps...)
		merged.err = multierr.Append(merged.err, b.err)
	}
	return merged
}

func (r *resolution) resolve(ctx context.Context, loc string) branch {
	if _, seen := r.visited.LoadOrStore(loc, struct{}{}); seen {
		r.logger.Debug("Sitemap already resolved", zap.String("sitemap", loc))
		return branch{}
	}
	if err := ctx.Err(); err != nil {
		return branch{err: fmt.Errorf("resolve sitemap %s: %w", loc, err)}
	}
	resp, err := r.loader.fetcher.Fetch(ctx, crawler.FetchRequest{
		URL:             loc,
		Method:          http.MethodGet,
		FollowRedirects: true,
		Accept:          sitemapAccept,
		Kind:            crawler.KindSitemap,
	})
	if err != nil {
		return branch{err: fmt.Errorf("fetch sitemap %s: %w", loc, err)}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return branch{err: fmt.Errorf("fetch sitemap %s: unexpected status %d", loc, resp.StatusCode)}
	}
	body, err := decompress(resp.Body)
	if err != nil {
		return branch{err: fmt.Errorf("decompress sitemap %s: %w", loc, err)}
	}
	doc, err := r.loader.parser.Parse(body)
	if err != nil {
		return branch{err: fmt.Errorf("parse sitemap %s: %w", loc, err)}
	}
	if doc.Empty() {
		return branch{err: fmt.Errorf("parse sitemap %s: %w", loc, ErrEmptySitemap)}
	}
	metrics.ObserveSitemapParsed(doc.Strategy)
	r.logger.Debug("Sitemap parsed",
		zap.String("sitemap", loc),
		zap.Stringer("kind", doc.Kind),
		zap.String("strategy", doc.Strategy),
		zap.Int("entries", len(doc.Entries)),
	)

	b := branch{sitemaps: []string{loc}, urls: r.absolute(doc.Pages())}
	if children := doc.Children(); len(children) > 0 {
		nested := r.resolveAll(ctx, r.absolute(children))
		b.urls = append(b.urls, nested.urls...)
		b.sitemaps = append(b.sitemaps, nested.sitemaps...)
		b.err = nested.err
	}
	return b
}

// absolute resolves locs against the site origin, dropping unparseable ones.
func (r *resolution) absolute(locs []string) []string {
	out := make([]string, 0, len(locs))
	for _, loc := range locs {
		ref, err := url.Parse(strings.TrimSpace(loc))
		if err != nil {
			r.logger.Debug("Dropping unparseable sitemap loc", zap.String("loc", loc), zap.Error(err))
			continue
		}
		out = append(out, r.origin.ResolveReference(ref).String())
	}
	return out
}

func decompress(body []byte) ([]byte, error) {
	if !bytes.HasPrefix(body, gzipMagic) {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer func() {
		_ = zr.Close()
	}()
	out, err := io.ReadAll(io.LimitReader(zr, maxUncompressed))
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read gzip: %w", err)
	}
	return out, nil
}

func dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
