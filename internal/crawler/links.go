package crawler

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var (
	wwwPattern       = regexp.MustCompile(`(?i)^www\.`)
	fetchableSchemes = regexp.MustCompile(`(?i)^(https?|ftp)://`)
)

// DefaultExcludePatterns lists the hrefs that are never followed: non-HTTP
// schemes, binary downloads (documents, images, audio, video, archives) and
// pagination parameters.
func DefaultExcludePatterns() []string {
	return []string{
		`(?i)mailto:`,
		`(?i)tel:`,
		`(?i)javascript:`,
		`(?i)\.(pdf|jpe?g|png|gif|svg|webp|ico|bmp|tiff?|mp3|mp4|m4a|wav|ogg|avi|mov|webm|zip|gz|tgz|tar|rar|7z|exe|dmg|msi|iso|docx?|xlsx?|pptx?)([?#].*)?$`,
		`\?page=`,
	}
}

// LinkFilter rejects hrefs that match any of its patterns.
type LinkFilter struct {
	patterns []*regexp.Regexp
}

// NewLinkFilter compiles patterns into a LinkFilter.
func NewLinkFilter(patterns []string) (*LinkFilter, error) {
	filter := &LinkFilter{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", p, err)
		}
		filter.patterns = append(filter.patterns, re)
	}
	return filter, nil
}

// Excluded reports whether href matches an exclusion pattern.
func (f *LinkFilter) Excluded(href string) bool {
	if f == nil {
		return false
	}
	for _, re := range f.patterns {
		if re.MatchString(href) {
			return true
		}
	}
	return false
}

// ExtractLinks returns the absolute URLs of every anchor in body, resolved
// against the origin of baseURL, in document order with duplicates removed.
// Hrefs matched by filter are skipped; hrefs that cannot be resolved are
// logged and dropped.
func ExtractLinks(body io.Reader, baseURL string, filter *LinkFilter, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := ParseAbsolute(baseURL)
	if err != nil {
		return nil, err
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" || filter.Excluded(href) {
			return
		}
		resolved, err := resolveHref(origin, href)
		if err != nil {
			logger.Debug("Dropping unresolvable link", zap.String("href", href), zap.Error(err))
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
	})
	return links, nil
}

func resolveHref(origin *url.URL, href string) (string, error) {
	var candidate string
	switch {
	case strings.HasPrefix(href, "/"), strings.HasPrefix(href, "#"):
		ref, err := url.Parse(href)
		if err != nil {
			return "", fmt.Errorf("parse href: %w", err)
		}
		return checkResolved(origin.ResolveReference(ref))
	case wwwPattern.MatchString(href):
		candidate = "https://" + href
	case !fetchableSchemes.MatchString(href):
		ref, err := url.Parse("/" + href)
		if err != nil {
			return "", fmt.Errorf("parse href: %w", err)
		}
		return checkResolved(origin.ResolveReference(ref))
	default:
		candidate = href
	}
	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}
	return checkResolved(parsed)
}

func checkResolved(u *url.URL) (string, error) {
	if u.Scheme == "" || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, u.String())
	}
	return u.String(), nil
}
