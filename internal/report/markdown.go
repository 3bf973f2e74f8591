package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/JakeFAU/sitemapper/internal/app"
	"github.com/JakeFAU/sitemapper/internal/crawler"
)

// MarkdownWriter renders reports as Markdown documents.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write renders report. Empty sections are omitted, except the URL list.
func (w *MarkdownWriter) Write(report *app.Report) error {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeURLs(md, report)
	w.writePages(md, "Page Visits", report.Pages)
	w.writePages(md, "Off-Domain Links", report.OffDomain)
	w.writeBroken(md, report)
	w.writeRedirects(md, report)
	w.writeWarnings(md, report)

	if err := md.Build(); err != nil {
		return fmt.Errorf("render markdown report: %w", err)
	}
	return nil
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *app.Report) {
	md.H1f("Discovery Report: %s", report.Target)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Session", "`" + report.SessionID + "`"},
			{"Mode", string(report.Mode)},
			{"Strategy", string(report.Strategy)},
			{"Started", report.StartedAt.Format(time.RFC3339)},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"URLs", strconv.Itoa(len(report.URLs))},
			{"Broken Links", strconv.Itoa(len(report.BrokenLinks))},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeURLs(md *markdown.Markdown, report *app.Report) {
	md.H2("Discovered URLs")
	md.PlainText("")
	if len(report.URLs) == 0 {
		md.PlainText("No URLs discovered.")
		md.PlainText("")
		return
	}
	md.BulletList(report.URLs...)
	md.PlainText("")
	if len(report.Sitemaps) > 0 {
		md.H2("Sitemaps")
		md.PlainText("")
		md.BulletList(report.Sitemaps...)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writePages(md *markdown.Markdown, title string, visits []crawler.PageVisit) {
	if len(visits) == 0 {
		return
	}
	rows := make([][]string, 0, len(visits))
	for _, v := range visits {
		rows = append(rows, []string{v.URL, strconv.Itoa(v.Count)})
	}
	md.H2(title)
	md.PlainText("")
	md.Table(markdown.TableSet{Header: []string{"URL", "Visits"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeBroken(md *markdown.Markdown, report *app.Report) {
	if len(report.BrokenLinks) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.BrokenLinks))
	for _, b := range report.BrokenLinks {
		rows = append(rows, []string{b.Parent, b.Target, strconv.Itoa(b.StatusCode)})
	}
	md.H2("Broken Links")
	md.PlainText("")
	md.Table(markdown.TableSet{Header: []string{"Found On", "Link", "Status"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeRedirects(md *markdown.Markdown, report *app.Report) {
	if len(report.Redirects) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.Redirects))
	for _, r := range report.Redirects {
		rows = append(rows, []string{r.URL, strconv.Itoa(r.StatusCode), r.Location})
	}
	md.H2("Redirects")
	md.PlainText("")
	md.Table(markdown.TableSet{Header: []string{"URL", "Status", "Location"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, report *app.Report) {
	if len(report.Warnings) == 0 {
		return
	}
	md.H2("Warnings")
	md.PlainText("")
	md.BulletList(report.Warnings...)
	md.PlainText("")
}
