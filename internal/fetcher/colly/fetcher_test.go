package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitemapper/internal/crawler"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Accept-Seen", r.Header.Get("Accept"))
		w.Header().Set("X-UA-Seen", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`<a href="/other">other</a>`))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchFollowsRedirects(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	f := New(Config{UserAgent: "sitemapper-test", Timeout: time.Second}, zap.NewNop())

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{
		URL:             srv.URL + "/old",
		FollowRedirects: true,
		Kind:            crawler.KindPage,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, srv.URL+"/old", resp.URL)
	assert.Equal(t, srv.URL+"/page", resp.FinalURL)
	assert.True(t, resp.IsHTML())
	assert.Contains(t, string(resp.Body), "other")
	assert.Equal(t, "sitemapper-test", resp.Headers.Get("X-UA-Seen"))
}

func TestFetchWithoutFollowingRedirects(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	f := New(Config{Timeout: time.Second}, zap.NewNop())

	for range 2 {
		resp, err := f.Fetch(context.Background(), crawler.FetchRequest{
			URL:             srv.URL + "/old",
			FollowRedirects: false,
			Kind:            crawler.KindRedirect,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
		assert.Equal(t, "/page", resp.Headers.Get("Location"))
		assert.True(t, resp.IsRedirect())
	}

	followed, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL + "/old", FollowRedirects: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, followed.StatusCode)
}

func TestFetchErrorStatusesAreResponses(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	f := New(Config{Timeout: time.Second}, zap.NewNop())

	for path, want := range map[string]int{"/missing": http.StatusNotFound, "/boom": http.StatusInternalServerError} {
		resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL + path, FollowRedirects: true})
		require.NoError(t, err, path)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}

func TestFetchSetsAccept(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	f := New(Config{Accept: "text/html", Timeout: time.Second}, zap.NewNop())

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL + "/page", FollowRedirects: true})
	require.NoError(t, err)
	assert.Equal(t, "text/html", resp.Headers.Get("X-Accept-Seen"))

	resp, err = f.Fetch(context.Background(), crawler.FetchRequest{
		URL:             srv.URL + "/page",
		FollowRedirects: true,
		Accept:          "application/xml",
	})
	require.NoError(t, err)
	assert.Equal(t, "application/xml", resp.Headers.Get("X-Accept-Seen"))
}

func TestFetchHead(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	f := New(Config{Timeout: time.Second}, zap.NewNop())

	resp, err := f.Fetch(context.Background(), crawler.FetchRequest{
		URL:             srv.URL + "/page",
		Method:          http.MethodHead,
		FollowRedirects: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestFetchTransportErrorIsFetchError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	f := New(Config{Timeout: time.Second}, zap.NewNop())
	_, err := f.Fetch(context.Background(), crawler.FetchRequest{URL: addr + "/gone", FollowRedirects: true})
	var fetchErr *crawler.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, addr+"/gone", fetchErr.URL)
}

func TestFetchHonoursContext(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	f := New(Config{Timeout: 5 * time.Second}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := f.Fetch(ctx, crawler.FetchRequest{URL: srv.URL + "/slow", FollowRedirects: true})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchInsecureTLS(t *testing.T) {
	t.Parallel()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	strict := New(Config{Timeout: time.Second}, zap.NewNop())
	_, err := strict.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL, FollowRedirects: true})
	require.Error(t, err)

	lax := New(Config{Timeout: time.Second, InsecureSkipVerify: true}, zap.NewNop())
	resp, err := lax.Fetch(context.Background(), crawler.FetchRequest{URL: srv.URL, FollowRedirects: true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{Accept: "text/html"}, nil)
	req := crawler.FetchRequest{URL: "https://example.com/start"}
	start := time.Unix(0, 0)
	var result crawler.FetchResponse
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, req, start, &result, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	assert.Equal(t, "text/html", collyReq.Headers.Get("Accept"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request: &colly.Request{
			URL: mustParseURL(t, "https://example.com/final"),
		},
	})
	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, "body", string(result.Body))
	assert.Equal(t, "ok", result.Headers.Get("X-Resp"))
	assert.Equal(t, "https://example.com/start", result.URL)
	assert.Equal(t, "https://example.com/final", result.FinalURL)

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, fetchErr, "boom")
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
