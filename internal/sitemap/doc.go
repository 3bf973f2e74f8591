// Package sitemap resolves the complete set of page URLs a site advertises
// through robots.txt and XML sitemaps, following sitemap indexes recursively.
//
// Sitemap documents are parsed with a strict XML parser first and, when that
// fails or finds nothing in a document that clearly contains <loc> elements,
// with a lenient pattern-based extractor that tolerates malformed markup.
package sitemap
