package sitemap

import (
	"regexp"
	"strings"

	"github.com/temoto/robotstxt"
)

var sitemapDirective = regexp.MustCompile(`(?m)^[Ss]itemap:\s*(.*)$`)

// SitemapsFromRobots returns the Sitemap directives declared in a robots.txt
// body, in order of appearance and without duplicates. Bodies the robots
// parser rejects are scanned line by line instead.
func SitemapsFromRobots(body []byte) []string {
	var declared []string
	if data, err := robotstxt.FromBytes(body); err == nil {
		declared = data.Sitemaps
	}
	if len(declared) == 0 {
		for _, m := range sitemapDirective.FindAllStringSubmatch(string(body), -1) {
			declared = append(declared, m[1])
		}
	}

	seen := make(map[string]struct{}, len(declared))
	out := make([]string, 0, len(declared))
	for _, loc := range declared {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			continue
		}
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		out = append(out, loc)
	}
	return out
}
