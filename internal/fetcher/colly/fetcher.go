// Package collyfetcher implements Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitemapper/internal/crawler"
	"github.com/JakeFAU/sitemapper/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent          string
	Timeout            time.Duration
	InsecureSkipVerify bool
	MaxBodyBytes       int
	Accept             string
}

// Fetcher implements crawler.Fetcher using two Colly collectors: one that
// follows redirects and one that returns the first 3xx response as is.
type Fetcher struct {
	cfg       Config
	follow    *colly.Collector
	noFollow  *colly.Collector
	transport http.RoundTripper
	logger    *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := newHTTPTransport(cfg.InsecureSkipVerify)
	f := &Fetcher{
		cfg:       cfg,
		transport: transport,
		logger:    logger,
	}
	f.follow = f.newCollector()
	f.noFollow = f.newCollector()
	f.noFollow.SetRedirectHandler(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	})
	return f
}

// newCollector builds a collector with its own HTTP client. Clones of a
// collector share that client, so the two redirect modes cannot be clones of
// one another.
func (f *Fetcher) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
		colly.IgnoreRobotsTxt(),
	)
	if f.cfg.UserAgent != "" {
		c.UserAgent = f.cfg.UserAgent
	}
	if f.cfg.MaxBodyBytes > 0 {
		c.MaxBodySize = f.cfg.MaxBodyBytes
	}
	c.WithTransport(f.transport)
	timeout := f.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.SetRequestTimeout(timeout)
	return c
}

// Fetch executes a single HTTP request using Colly. Any HTTP status is a
// successful fetch; only transport failures return an error, always as a
// *crawler.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	var (
		result   crawler.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(ctx, request, start, &result, &fetchErr)

	err := f.runCollector(ctx, collector, request, &fetchErr)
	if err == nil && result.StatusCode == 0 {
		err = errors.New("no response received")
	}
	outcome := "error"
	if err == nil {
		outcome = strconv.Itoa(result.StatusCode)
	}
	metrics.ObserveFetch(request.URL, request.Kind, outcome, time.Since(start))
	if err != nil {
		f.logger.Debug("Fetch failed",
			zap.String("url", request.URL),
			zap.String("kind", request.Kind),
			zap.Error(err),
		)
		return crawler.FetchResponse{}, &crawler.FetchError{URL: request.URL, Err: err}
	}
	return result, nil
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	request crawler.FetchRequest,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	base := f.follow
	if !request.FollowRedirects {
		base = f.noFollow
	}
	collector := base.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, request, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request crawler.FetchRequest,
	start time.Time,
	result *crawler.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.applyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		headers := http.Header{}
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		finalURL := request.URL
		if r.Request != nil && r.Request.URL != nil {
			finalURL = r.Request.URL.String()
		}
		*result = crawler.FetchResponse{
			URL:        request.URL,
			FinalURL:   finalURL,
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	request crawler.FetchRequest,
	fetchErr *error,
) error {
	method := request.Method
	if method == "" {
		method = http.MethodGet
	}
	done := make(chan error, 1)
	go func() {
		done <- collector.Request(method, request.URL, nil, nil, nil)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly request failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) applyHeaders(request crawler.FetchRequest, r *colly.Request) {
	if r.Headers == nil {
		return
	}
	accept := request.Accept
	if accept == "" {
		accept = f.cfg.Accept
	}
	if accept != "" {
		r.Headers.Set("Accept", accept)
	}
}

func newHTTPTransport(insecure bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure, //nolint:gosec // opt-in for sites with broken certificates
		},
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
