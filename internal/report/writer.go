package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/sitemapper/internal/app"
)

// Format names an output format.
type Format string

const (
	// FormatMarkdown renders a Markdown document.
	FormatMarkdown Format = "markdown"
	// FormatJSON renders indented JSON.
	FormatJSON Format = "json"
	// FormatText prints one URL per line.
	FormatText Format = "text"
)

// ErrUnknownFormat is returned for unsupported formats.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat converts s into a Format. "md" is accepted for markdown.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatJSON, FormatText:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Writer renders a discovery report.
type Writer interface {
	Write(report *app.Report) error
}

// NewWriter returns the Writer for format.
func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output), nil
	case FormatText:
		return NewTextWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// TextWriter prints the discovered URLs, one per line.
type TextWriter struct {
	output io.Writer
}

// NewTextWriter creates a TextWriter.
func NewTextWriter(output io.Writer) *TextWriter {
	return &TextWriter{output: output}
}

// Write prints report.URLs.
func (w *TextWriter) Write(report *app.Report) error {
	var sb strings.Builder
	for _, u := range report.URLs {
		sb.WriteString(u)
		sb.WriteByte('\n')
	}
	if _, err := io.WriteString(w.output, sb.String()); err != nil {
		return fmt.Errorf("write text report: %w", err)
	}
	return nil
}
