package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/figureflow/internal/models"
)

const (
	ExportTextName         = "export.md"
	ExportDescriptionsName = "image_descriptions.json"
	ExportImagesDir        = "images"
)

// ExportSummary describes what an export wrote.
type ExportSummary struct {
	PageCount   int
	FigureCount int
	Files       []string
}

// Exporter writes a DocumentResult as export.md, images/figNNN.png and
// image_descriptions.json.
type Exporter struct {
	sink Sink
}

func NewExporter(sink Sink) *Exporter {
	return &Exporter{sink: sink}
}

// Export writes the artifacts for every extracted page in index order. Figures
// are numbered from 1 across the whole document. Failed pages are skipped.
func (e *Exporter) Export(ctx context.Context, doc *models.DocumentResult) (ExportSummary, error) {
	logCtx := slog.With("destination", fmt.Sprint(e.sink))

	var summary ExportSummary
	var text strings.Builder
	descriptions := make(map[string]string)

	for _, page := range doc.Ordered() {
		text.WriteString(strings.TrimSpace(page.Text))
		text.WriteString("\n\n")

		for i, fig := range page.Figures {
			summary.FigureCount++
			name := fmt.Sprintf("fig%03d.png", summary.FigureCount)

			var buf bytes.Buffer
			if err := png.Encode(&buf, fig.Image); err != nil {
				return summary, fmt.Errorf("failed to encode %s: %w", name, err)
			}

			object := ExportImagesDir + "/" + name
			if err := e.sink.Put(ctx, object, "image/png", buf.Bytes()); err != nil {
				return summary, fmt.Errorf("failed to store %s: %w", object, err)
			}
			summary.Files = append(summary.Files, object)
			var caption string
			if i < len(page.Captions) {
				caption = page.Captions[i]
			}
			descriptions[name] = caption
		}
		summary.PageCount++
	}

	merged := strings.TrimSpace(text.String())
	if err := e.sink.Put(ctx, ExportTextName, "text/markdown; charset=utf-8", []byte(merged)); err != nil {
		return summary, fmt.Errorf("failed to store %s: %w", ExportTextName, err)
	}
	summary.Files = append(summary.Files, ExportTextName)

	payload, err := encodeDescriptions(descriptions)
	if err != nil {
		return summary, err
	}
	if err := e.sink.Put(ctx, ExportDescriptionsName, "application/json", payload); err != nil {
		return summary, fmt.Errorf("failed to store %s: %w", ExportDescriptionsName, err)
	}
	summary.Files = append(summary.Files, ExportDescriptionsName)

	logCtx.Info("Export complete.", "pages", summary.PageCount, "figures", summary.FigureCount)
	return summary, nil
}

// encodeDescriptions writes captions verbatim, without HTML escaping.
func encodeDescriptions(descriptions map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(descriptions); err != nil {
		return nil, fmt.Errorf("failed to marshal image descriptions: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
