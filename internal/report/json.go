package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JakeFAU/sitemapper/internal/app"
)

// JSONWriter encodes reports as indented JSON.
type JSONWriter struct {
	output io.Writer
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{output: output}
}

// Write encodes report followed by a newline.
func (w *JSONWriter) Write(report *app.Report) error {
	enc := json.NewEncoder(w.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}
