package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var schemePattern = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*://`)

// NormalizeURL reduces rawURL to the key used to decide whether two URLs name
// the same page: the lowercased hostname followed by the path, with a single
// trailing slash removed. Scheme, port, query and fragment are discarded and
// the path keeps its case.
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := ParseAbsolute(rawURL)
	if err != nil {
		return "", err
	}
	key := strings.ToLower(parsed.Hostname()) + parsed.EscapedPath()
	return strings.TrimSuffix(key, "/"), nil
}

// ParseAbsolute parses rawURL and requires both a scheme and a host.
func ParseAbsolute(rawURL string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURL, rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, rawURL)
	}
	return parsed, nil
}

// EnsureScheme prefixes https:// when target carries no scheme.
func EnsureScheme(target string) string {
	target = strings.TrimSpace(target)
	if target == "" || schemePattern.MatchString(target) {
		return target
	}
	return "https://" + strings.TrimPrefix(target, "//")
}

// SiteHost returns the lowercased hostname with a leading "www." removed.
func SiteHost(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// SameSite reports whether a and b belong to the same site. "www." variants
// of a host are treated as the same site.
func SameSite(a, b *url.URL) bool {
	if a == nil || b == nil {
		return false
	}
	return SiteHost(a) == SiteHost(b)
}

// Origin returns scheme://host[:port] for u.
func Origin(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}
