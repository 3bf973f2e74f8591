// Package crawler discovers the pages of a single site by following anchor
// links depth-first from a base URL. It owns URL normalization, link
// extraction, the per-session visit bookkeeping, broken-link detection and the
// optional redirect post-pass.
package crawler
