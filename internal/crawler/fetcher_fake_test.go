package crawler

import (
	"context"
	"errors"
	"net/http"
	"sync"
)

type fakePage struct {
	status      int
	contentType string
	body        string
	location    string
	err         error
}

// fakeFetcher serves canned pages and counts requests per URL and mode.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[string]fakePage
	calls    map[string]int
	noFollow map[string]int
	inFlight int
	peak     int
}

func newFakeFetcher(pages map[string]fakePage) *fakeFetcher {
	return &fakeFetcher{
		pages:    pages,
		calls:    make(map[string]int),
		noFollow: make(map[string]int),
	}
}

func htmlPage(body string) fakePage {
	return fakePage{status: http.StatusOK, contentType: "text/html; charset=utf-8", body: body}
}

func (f *fakeFetcher) Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error) {
	f.mu.Lock()
	if request.FollowRedirects {
		f.calls[request.URL]++
	} else {
		f.noFollow[request.URL]++
	}
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	page, ok := f.pages[request.URL]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if err := ctx.Err(); err != nil {
		return FetchResponse{}, &FetchError{URL: request.URL, Err: err}
	}
	if !ok {
		page = fakePage{status: http.StatusNotFound, contentType: "text/plain"}
	}
	if page.err != nil {
		return FetchResponse{}, &FetchError{URL: request.URL, Err: page.err}
	}
	headers := http.Header{}
	headers.Set("Content-Type", page.contentType)
	status := page.status
	if page.location != "" {
		if request.FollowRedirects {
			target, known := f.pages[page.location]
			if known {
				page = target
				status = target.status
				headers.Set("Content-Type", target.contentType)
			}
		} else {
			headers.Set("Location", page.location)
		}
	}
	return FetchResponse{
		URL:        request.URL,
		FinalURL:   request.URL,
		StatusCode: status,
		Headers:    headers,
		Body:       []byte(page.body),
	}, nil
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

var errConnRefused = errors.New("connection refused")
