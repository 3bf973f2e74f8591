package sitemap

import "errors"

var (
	// ErrXMLParse is returned by the strict parser for malformed documents.
	ErrXMLParse = errors.New("sitemap xml parse failed")
	// ErrNoSitemap is returned when no sitemap anywhere yielded a URL.
	ErrNoSitemap = errors.New("no sitemap urls found")
	// ErrEmptySitemap marks a fetched document with no entries.
	ErrEmptySitemap = errors.New("sitemap has no entries")
)

// Kind identifies the root of a sitemap document.
type Kind int

const (
	KindUnknown Kind = iota
	KindIndex
	KindURLSet
)

func (k Kind) String() string {
	switch k {
	case KindIndex:
		return "sitemapindex"
	case KindURLSet:
		return "urlset"
	default:
		return "unknown"
	}
}

// EntryType tells whether an entry points at another sitemap or at a page.
type EntryType int

const (
	EntryLeaf EntryType = iota + 1
	EntryIndex
)

// Entry is a single <loc> value from a sitemap document.
type Entry struct {
	Type EntryType
	Loc  string
}

// Parse strategies reported on a Document.
const (
	StrategyStrict  = "strict"
	StrategyLenient = "lenient"
)

// Document is the parsed form of one sitemap.
type Document struct {
	Kind     Kind
	Entries  []Entry
	Strategy string
}

// Children returns the locations of nested sitemaps.
func (d Document) Children() []string {
	return d.locs(EntryIndex)
}

// Pages returns the page locations.
func (d Document) Pages() []string {
	return d.locs(EntryLeaf)
}

// Empty reports whether the document has no entries.
func (d Document) Empty() bool {
	return len(d.Entries) == 0
}

func (d Document) locs(t EntryType) []string {
	var out []string
	for _, e := range d.Entries {
		if e.Type == t {
			out = append(out, e.Loc)
		}
	}
	return out
}
