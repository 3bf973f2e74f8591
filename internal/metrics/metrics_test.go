package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeSite(tc.input))
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := fetchesTotal
	Init()
	assert.Same(t, first, fetchesTotal)
}

func TestObserveFetch(t *testing.T) {
	ObserveFetch("https://Fetch.Example/a", "page", "200", 10*time.Millisecond)
	ObserveFetch("https://fetch.example/b", "page", "200", 10*time.Millisecond)
	ObserveFetch("https://fetch.example/c", "", "error", time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(fetchesTotal.WithLabelValues("fetch.example", "page", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(fetchesTotal.WithLabelValues("fetch.example", "unknown", "error")), 0)
}

func TestObserveCounters(t *testing.T) {
	Init()
	before := testutil.ToFloat64(pagesVisitedTotal)
	ObservePageVisit()
	assert.InDelta(t, before+1, testutil.ToFloat64(pagesVisitedTotal), 0)

	ObserveBrokenLink("https://broken.example")
	assert.InDelta(t, 1, testutil.ToFloat64(brokenLinksTotal.WithLabelValues("broken.example")), 0)

	ObserveSitemapParsed("lenient-test")
	assert.InDelta(t, 1, testutil.ToFloat64(sitemapsParsedTotal.WithLabelValues("lenient-test")), 0)
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
