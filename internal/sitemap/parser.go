package sitemap

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
)

const (
	sitemapLocXPath = "//*[local-name()='sitemap']/*[local-name()='loc']"
	urlLocXPath     = "//*[local-name()='url']/*[local-name()='loc']"
)

var (
	sitemapBlockPattern = regexp.MustCompile(`(?is)<sitemap(?:\s[^>]*)?>.*?<loc>(.*?)</loc>.*?</sitemap>`)
	locPattern          = regexp.MustCompile(`(?is)<loc>(.*?)</loc>`)
	indexMarker         = regexp.MustCompile(`(?i)<sitemapindex[\s>]`)
	urlsetMarker        = regexp.MustCompile(`(?i)<urlset[\s>]`)
	cdataPattern        = regexp.MustCompile(`(?s)^<!\[CDATA\[(.*)\]\]>$`)
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser turns a raw sitemap body into a Document.
type Parser interface {
	Parse(raw []byte) (Document, error)
}

// StrictParser parses well-formed sitemap XML and fails on malformed input.
type StrictParser struct{}

// Parse implements Parser.
func (StrictParser) Parse(raw []byte) (Document, error) {
	raw = bytes.TrimSpace(bytes.TrimPrefix(raw, utf8BOM))
	root, err := xmlquery.Parse(bytes.NewReader(raw))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrXMLParse, err)
	}

	doc := Document{Kind: rootKind(root), Strategy: StrategyStrict}
	if doc.Kind != KindURLSet {
		for _, node := range xmlquery.Find(root, sitemapLocXPath) {
			doc.add(EntryIndex, node.InnerText())
		}
	}
	if doc.Kind != KindIndex {
		for _, node := range xmlquery.Find(root, urlLocXPath) {
			doc.add(EntryLeaf, node.InnerText())
		}
	}
	return doc, nil
}

func rootKind(root *xmlquery.Node) Kind {
	for node := root.FirstChild; node != nil; node = node.NextSibling {
		if node.Type != xmlquery.ElementNode {
			continue
		}
		switch strings.ToLower(node.Data) {
		case "sitemapindex":
			return KindIndex
		case "urlset":
			return KindURLSet
		}
		return KindUnknown
	}
	return KindUnknown
}

// LenientParser extracts <loc> values with regular expressions. It accepts
// truncated or otherwise malformed documents and never fails.
type LenientParser struct{}

// Parse implements Parser.
func (LenientParser) Parse(raw []byte) (Document, error) {
	text := string(raw)
	doc := Document{Strategy: StrategyLenient}
	switch {
	case indexMarker.MatchString(text):
		doc.Kind = KindIndex
	case urlsetMarker.MatchString(text):
		doc.Kind = KindURLSet
	}

	if doc.Kind != KindURLSet {
		tail := 0
		for _, m := range sitemapBlockPattern.FindAllStringSubmatchIndex(text, -1) {
			doc.add(EntryIndex, text[m[2]:m[3]])
			tail = m[1]
		}
		// A truncated index can end inside an unclosed <sitemap> block.
		if doc.Kind == KindIndex {
			for _, m := range locPattern.FindAllStringSubmatch(text[tail:], -1) {
				doc.add(EntryIndex, m[1])
			}
		}
		if !doc.Empty() {
			doc.Kind = KindIndex
			return doc, nil
		}
		if doc.Kind == KindIndex {
			return doc, nil
		}
	}

	for _, m := range locPattern.FindAllStringSubmatch(text, -1) {
		doc.add(EntryLeaf, m[1])
	}
	if doc.Kind == KindUnknown && !doc.Empty() {
		doc.Kind = KindURLSet
	}
	return doc, nil
}

// HybridParser tries the strict parser and falls back to the lenient one when
// strict parsing fails, or finds nothing although the body contains <loc>.
// It never returns an error; a hopeless document yields an empty Document.
type HybridParser struct {
	Strict  Parser
	Lenient Parser
}

// Parse implements Parser.
func (p HybridParser) Parse(raw []byte) (Document, error) {
	strict, lenient := p.Strict, p.Lenient
	if strict == nil {
		strict = StrictParser{}
	}
	if lenient == nil {
		lenient = LenientParser{}
	}

	doc, err := strict.Parse(raw)
	if err == nil && (!doc.Empty() || !locPattern.Match(raw)) {
		return doc, nil
	}
	fallback, ferr := lenient.Parse(raw)
	if ferr != nil {
		return Document{Strategy: StrategyLenient}, nil
	}
	return fallback, nil
}

// Parse parses raw with the default HybridParser.
func Parse(raw []byte) Document {
	doc, _ := HybridParser{}.Parse(raw)
	return doc
}

func (d *Document) add(t EntryType, loc string) {
	loc = cleanLoc(loc)
	if loc == "" {
		return
	}
	d.Entries = append(d.Entries, Entry{Type: t, Loc: loc})
}

func cleanLoc(raw string) string {
	loc := strings.TrimSpace(raw)
	if m := cdataPattern.FindStringSubmatch(loc); m != nil {
		loc = strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(html.UnescapeString(loc))
}
