// Package metrics exposes Prometheus collectors for URL discovery.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchesTotal               *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	pagesVisitedTotal          prometheus.Counter
	brokenLinksTotal           *prometheus.CounterVec
	sitemapsParsedTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemapper_fetches_total",
				Help: "Total number of outbound fetches, labeled by site, kind and outcome.",
			},
			[]string{"site", "kind", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitemapper_fetch_duration_seconds",
				Help:    "Histogram of outbound fetch latencies, labeled by kind.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"kind"},
		)

		pagesVisitedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sitemapper_pages_visited_total",
				Help: "Total number of same-site pages fetched by the crawler.",
			},
		)

		brokenLinksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemapper_broken_links_total",
				Help: "Total number of broken links found, labeled by site.",
			},
			[]string{"site"},
		)

		sitemapsParsedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemapper_sitemaps_parsed_total",
				Help: "Total number of sitemap documents parsed, labeled by parse strategy.",
			},
			[]string{"strategy"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sitemapper_http_requests_total",
				Help: "Total number of API requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sitemapper_http_request_duration_seconds",
				Help:    "Histogram of API request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveFetch records one outbound fetch. outcome is an HTTP status code or
// "error" for transport failures.
func ObserveFetch(site, kind, outcome string, duration time.Duration) {
	Init()
	if kind == "" {
		kind = "unknown"
	}
	fetchesTotal.WithLabelValues(SanitizeSite(site), kind, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// ObservePageVisit counts a fetched same-site page.
func ObservePageVisit() {
	Init()
	pagesVisitedTotal.Inc()
}

// ObserveBrokenLink counts a broken link found on site.
func ObserveBrokenLink(site string) {
	Init()
	brokenLinksTotal.WithLabelValues(SanitizeSite(site)).Inc()
}

// ObserveSitemapParsed counts a parsed sitemap document.
func ObserveSitemapParsed(strategy string) {
	Init()
	sitemapsParsedTotal.WithLabelValues(strategy).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
