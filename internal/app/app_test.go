package app_test

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitemapper/internal/app"
	"github.com/JakeFAU/sitemapper/internal/config"
	"github.com/JakeFAU/sitemapper/internal/crawler"
)

type page struct {
	status      int
	contentType string
	body        string
}

type siteFetcher struct {
	mu    sync.Mutex
	pages map[string]page
	seen  []string
}

func (s *siteFetcher) Fetch(_ context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, request.URL)
	p, ok := s.pages[request.URL]
	if !ok {
		p = page{status: http.StatusNotFound, contentType: "text/plain"}
	}
	headers := http.Header{}
	headers.Set("Content-Type", p.contentType)
	return crawler.FetchResponse{
		URL:        request.URL,
		FinalURL:   request.URL,
		StatusCode: p.status,
		Headers:    headers,
		Body:       []byte(p.body),
	}, nil
}

func html(body string) page {
	return page{status: http.StatusOK, contentType: "text/html", body: body}
}

func newApp(t *testing.T, pages map[string]page) *app.App {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	a, err := app.NewWithFetcher(cfg, &siteFetcher{pages: pages}, zap.NewNop())
	require.NoError(t, err)
	return a
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := map[string]app.Mode{
		"":        app.ModeAuto,
		"auto":    app.ModeAuto,
		"Sitemap": app.ModeSitemap,
		" crawl ": app.ModeCrawl,
		"broken":  app.ModeBroken,
	}
	for in, want := range tests {
		got, err := app.ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := app.ParseMode("spider")
	require.ErrorIs(t, err, app.ErrUnknownMode)
}

func TestDiscoverAutoPrefersSitemaps(t *testing.T) {
	t.Parallel()

	a := newApp(t, map[string]page{
		"https://example.com/sitemap.xml": {
			status: http.StatusOK,
			body:   `<urlset><url><loc>https://example.com/a</loc></url><url><loc>https://example.com/b</loc></url></urlset>`,
		},
	})
	report, err := a.Discover(context.Background(), "example.com", app.ModeAuto)
	require.NoError(t, err)

	assert.Equal(t, "https://example.com", report.Target)
	assert.Equal(t, app.ModeSitemap, report.Strategy)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, report.URLs)
	assert.Equal(t, []string{"https://example.com/sitemap.xml"}, report.Sitemaps)
	assert.NotEmpty(t, report.SessionID)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestDiscoverAutoFallsBackToCrawl(t *testing.T) {
	t.Parallel()

	a := newApp(t, map[string]page{
		"https://example.com":       html(`<a href="/about">about</a><a href="/missing">missing</a>`),
		"https://example.com/about": html(`<a href="/">home</a>`),
	})
	report, err := a.Discover(context.Background(), "https://example.com", "")
	require.NoError(t, err)

	assert.Equal(t, app.ModeAuto, report.Mode)
	assert.Equal(t, app.ModeCrawl, report.Strategy)
	assert.Equal(t, []string{"https://example.com", "https://example.com/about"}, report.URLs)
	require.Len(t, report.BrokenLinks, 1)
	assert.Equal(t, "https://example.com/missing", report.BrokenLinks[0].Target)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[0], "no sitemap urls found")
}

func TestDiscoverSitemapOnlyReportsEmptyResult(t *testing.T) {
	t.Parallel()

	a := newApp(t, map[string]page{
		"https://example.com": html(`<a href="/about">about</a>`),
	})
	report, err := a.Discover(context.Background(), "https://example.com", app.ModeSitemap)
	require.NoError(t, err)
	assert.Empty(t, report.URLs)
	assert.Empty(t, report.Pages)
	assert.NotEmpty(t, report.Warnings)
}

func TestDiscoverBrokenMode(t *testing.T) {
	t.Parallel()

	a := newApp(t, map[string]page{
		"https://example.com/page": html(`<a href="/ok">ok</a><a href="/gone">gone</a>`),
		"https://example.com/ok":   html(`fine`),
	})
	report, err := a.Discover(context.Background(), "https://example.com/page", app.ModeBroken)
	require.NoError(t, err)
	assert.Equal(t, app.ModeBroken, report.Strategy)
	assert.Equal(t, []crawler.BrokenLink{{
		Parent:     "https://example.com/page",
		Target:     "https://example.com/gone",
		StatusCode: http.StatusNotFound,
	}}, report.BrokenLinks)
}

func TestDiscoverRejectsBadInput(t *testing.T) {
	t.Parallel()

	a := newApp(t, nil)
	_, err := a.Discover(context.Background(), "", app.ModeAuto)
	require.ErrorIs(t, err, crawler.ErrInvalidURL)

	_, err = a.Discover(context.Background(), "https://example.com", app.Mode("spider"))
	require.ErrorIs(t, err, app.ErrUnknownMode)
}
