package crawler

import (
	"net/http"
	"strings"
	"time"
)

// Fetch kinds used to label metrics and logs.
const (
	KindPage      = "page"
	KindOffDomain = "off_domain"
	KindRedirect  = "redirect"
	KindLink      = "link"
	KindRobots    = "robots"
	KindSitemap   = "sitemap"
)

// FetchRequest describes a single HTTP request issued by the engine.
type FetchRequest struct {
	URL             string
	Method          string
	FollowRedirects bool
	Accept          string
	Kind            string
}

// FetchResponse captures the response metadata and body.
type FetchResponse struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the response Content-Type header.
func (r FetchResponse) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// IsHTML reports whether the response declares an HTML body.
func (r FetchResponse) IsHTML() bool {
	return strings.Contains(strings.ToLower(r.ContentType()), "text/html")
}

// IsRedirect reports whether the status is in the 3xx class.
func (r FetchResponse) IsRedirect() bool {
	return r.StatusCode >= 300 && r.StatusCode < 400
}

// PageVisit is one row of a visit table: a normalized page key and the number
// of times it was encountered.
type PageVisit struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// BrokenLink records a link whose target answered with an error status.
type BrokenLink struct {
	Parent     string `json:"parent"`
	Target     string `json:"target"`
	StatusCode int    `json:"status_code"`
}

// Redirect records a page that answered with a 3xx status.
type Redirect struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Location   string `json:"location"`
}

// Result is the outcome of a crawl session.
type Result struct {
	SessionID   string       `json:"session_id"`
	BaseURL     string       `json:"base_url"`
	Discovered  []string     `json:"discovered"`
	Pages       []PageVisit  `json:"pages"`
	FinalPages  []PageVisit  `json:"final_pages,omitempty"`
	OffDomain   []PageVisit  `json:"off_domain,omitempty"`
	BrokenLinks []BrokenLink `json:"broken_links,omitempty"`
	Redirects   []Redirect   `json:"redirects,omitempty"`
	Fetches     int64        `json:"fetches"`
}
