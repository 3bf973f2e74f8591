// Package report renders discovery reports for people and tools.
//
// Three formats are available:
//   - markdown: tables of discovered URLs, visit counts, broken links, and
//     redirects, for sharing.
//   - json: the report as-is, for tool integration.
//   - text: one discovered URL per line, for shell pipelines.
package report
