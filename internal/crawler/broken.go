package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckLinks fetches pageURL and every link on it exactly once, without
// recursing, and reports the links that answered with an error status.
// Only a transport failure on pageURL itself is returned as an error.
func (c *Crawler) CheckLinks(ctx context.Context, pageURL string) (*Result, error) {
	base, err := ParseAbsolute(pageURL)
	if err != nil {
		return nil, err
	}
	s := newSession(c.newSessionID(), base, 0)
	s.sortBroken = c.cfg.Concurrency > 1
	w := &walk{
		crawler: c,
		session: s,
		logger:  c.logger.With(zap.String("session_id", s.id), zap.String("page", base.String())),
	}
	key, err := NormalizeURL(pageURL)
	if err != nil {
		return nil, err
	}
	s.claimPage(key, base.String())

	resp, err := c.fetcher.Fetch(ctx, FetchRequest{
		URL:             base.String(),
		Method:          http.MethodGet,
		FollowRedirects: true,
		Kind:            KindPage,
	})
	s.fetches.Add(1)
	if err != nil {
		return nil, fmt.Errorf("check links on %s: %w", base, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		w.recordBroken(BrokenLink{Target: base.String(), StatusCode: resp.StatusCode})
		return s.result(), nil
	}
	s.markFound(key, base.String())
	links, err := c.pageLinks(resp, base.String())
	switch {
	case errors.Is(err, ErrNonHTML):
		w.logger.Info("Page is not HTML; no links to check", zap.Error(err))
		return s.result(), nil
	case err != nil:
		return nil, fmt.Errorf("check links on %s: %w", base, err)
	}
	w.logger.Info("Checking links", zap.Int("links", len(links)))

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for _, link := range links {
		g.Go(func() error {
			w.checkLink(ctx, base.String(), link)
			return nil
		})
	}
	_ = g.Wait()

	result := s.result()
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("check links on %s: %w", base, err)
	}
	return result, nil
}

func (w *walk) checkLink(ctx context.Context, parent, link string) {
	if ctx.Err() != nil {
		return
	}
	w.session.fetches.Add(1)
	resp, err := w.crawler.fetcher.Fetch(ctx, FetchRequest{
		URL:             link,
		Method:          http.MethodGet,
		FollowRedirects: true,
		Kind:            KindLink,
	})
	if err != nil {
		w.logger.Debug("Link check failed", zap.String("url", link), zap.Error(err))
		return
	}
	if resp.StatusCode >= http.StatusBadRequest {
		w.recordBroken(BrokenLink{Parent: parent, Target: link, StatusCode: resp.StatusCode})
	}
}
