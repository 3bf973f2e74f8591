package crawler

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type redirectProbe struct {
	redirect *Redirect
	final    bool
}

// checkRedirects re-requests every fetched page without following redirects.
// Pages answering 3xx become Redirect records; the rest are confirmed final
// pages. Transport failures land in neither list.
func (w *walk) checkRedirects(ctx context.Context, pages []pageRef) ([]Redirect, []PageVisit) {
	probes := make([]redirectProbe, len(pages))
	var g errgroup.Group
	g.SetLimit(w.crawler.cfg.Concurrency)
	for i, page := range pages {
		g.Go(func() error {
			resp, err := w.fetch(ctx, FetchRequest{
				URL:             page.url,
				Method:          http.MethodGet,
				FollowRedirects: false,
				Kind:            KindRedirect,
			})
			if err != nil {
				w.logger.Warn("Redirect check failed", zap.String("url", page.url), zap.Error(err))
				return nil
			}
			if resp.IsRedirect() {
				probes[i].redirect = &Redirect{
					URL:        page.url,
					StatusCode: resp.StatusCode,
					Location:   resp.Headers.Get("Location"),
				}
				return nil
			}
			probes[i].final = true
			return nil
		})
	}
	_ = g.Wait()

	w.session.mu.Lock()
	defer w.session.mu.Unlock()
	var redirects []Redirect
	finals := make(map[string]int)
	for i, probe := range probes {
		switch {
		case probe.redirect != nil:
			redirects = append(redirects, *probe.redirect)
		case probe.final:
			finals[pages[i].key] = w.session.visits[pages[i].key]
		}
	}
	return redirects, sortVisits(finals)
}
