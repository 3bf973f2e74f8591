package crawler

import (
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
)

type claim int

const (
	claimNew claim = iota
	claimRevisit
	claimOverLimit
)

// session holds the shared tables of one crawl. Every check-and-increment is
// done under mu so concurrent branches never fetch the same page twice.
type session struct {
	id      string
	base    *url.URL
	maxPage int

	// sortBroken orders broken links by parent and target. Sequential runs
	// keep discovery order.
	sortBroken bool

	mu        sync.Mutex
	visits    map[string]int
	pageURLs  map[string]string
	offDomain map[string]int
	found     map[string]string
	broken    []BrokenLink

	fetches atomic.Int64
}

func newSession(id string, base *url.URL, maxPages int) *session {
	return &session{
		id:        id,
		base:      base,
		maxPage:   maxPages,
		visits:    make(map[string]int),
		pageURLs:  make(map[string]string),
		offDomain: make(map[string]int),
		found:     make(map[string]string),
	}
}

// claimPage increments the visit count for key and reports whether the caller
// is the first to see it and should fetch it.
func (s *session) claimPage(key, rawURL string) claim {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.visits[key]; ok {
		s.visits[key]++
		return claimRevisit
	}
	if s.maxPage > 0 && len(s.visits) >= s.maxPage {
		return claimOverLimit
	}
	s.visits[key] = 1
	s.pageURLs[key] = rawURL
	return claimNew
}

// claimOffDomain increments the off-domain count for key and reports whether
// this is its first encounter.
func (s *session) claimOffDomain(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offDomain[key]++
	return s.offDomain[key] == 1
}

// markFound records a page that answered without an error status.
func (s *session) markFound(key, rawURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.found[key] = rawURL
}

func (s *session) recordBroken(link BrokenLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = append(s.broken, link)
}

type pageRef struct {
	key string
	url string
}

// pages returns the fetched pages ordered by key.
func (s *session) pages() []pageRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]pageRef, 0, len(s.pageURLs))
	for key, raw := range s.pageURLs {
		out = append(out, pageRef{key: key, url: raw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

func (s *session) result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	broken := append([]BrokenLink(nil), s.broken...)
	if s.sortBroken {
		sort.SliceStable(broken, func(i, j int) bool {
			if broken[i].Parent != broken[j].Parent {
				return broken[i].Parent < broken[j].Parent
			}
			return broken[i].Target < broken[j].Target
		})
	}
	keys := make([]string, 0, len(s.found))
	for key := range s.found {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	discovered := make([]string, 0, len(keys))
	for _, key := range keys {
		discovered = append(discovered, s.found[key])
	}
	return &Result{
		SessionID:   s.id,
		BaseURL:     s.base.String(),
		Discovered:  discovered,
		Pages:       sortVisits(s.visits),
		OffDomain:   sortVisits(s.offDomain),
		BrokenLinks: broken,
		Fetches:     s.fetches.Load(),
	}
}

// sortVisits orders a visit table by descending count, then by key.
func sortVisits(table map[string]int) []PageVisit {
	out := make([]PageVisit, 0, len(table))
	for key, count := range table {
		out = append(out, PageVisit{URL: key, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].URL < out[j].URL
	})
	return out
}
