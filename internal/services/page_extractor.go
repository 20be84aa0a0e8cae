package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/Lllllllleong/figureflow/internal/ocr"
	"github.com/Lllllllleong/figureflow/internal/segment"
	"github.com/Lllllllleong/figureflow/internal/textclean"
)

// PageExtractor turns one page into cleaned text plus figures and their captions.
type PageExtractor struct {
	recognizer ocr.Recognizer
	segmenter  *segment.Segmenter
}

func NewPageExtractor(recognizer ocr.Recognizer, segmenter *segment.Segmenter) *PageExtractor {
	if recognizer == nil {
		recognizer = ocr.Disabled{}
	}
	if segmenter == nil {
		segmenter = segment.New()
	}

	return &PageExtractor{
		recognizer: recognizer,
		segmenter:  segmenter,
	}
}

// Extract processes a single page. The embedded text layer is used when it
// has content, otherwise the whole page is sent to OCR. Figures are detected
// either way. OCR failures only leave text or captions empty; a page that
// cannot be rendered or segmented returns an error.
func (p *PageExtractor) Extract(ctx context.Context, src PageSource, index models.PageIndex) (models.PageResult, error) {
	logCtx := slog.With("page", int(index))

	embedded, err := src.EmbeddedText(index)
	if err != nil {
		logCtx.Warn("Failed to read embedded text, treating page as scanned.", "error", err)
		embedded = ""
	}

	raster, err := src.Raster(index)
	if err != nil {
		return models.PageResult{}, fmt.Errorf("page %d: %w", index, err)
	}

	var body string
	usedOCR := false
	if strings.TrimSpace(embedded) != "" {
		body = embedded
	} else {
		usedOCR = true
		res := p.recognizer.Recognize(ctx, raster)
		if !res.OK() {
			logCtx.Warn("Page OCR unavailable, page text left empty.", "error", res.Err)
		}
		body = res.String()
	}

	candidates, err := p.segmenter.Segment(raster)
	if err != nil {
		return models.PageResult{}, fmt.Errorf("page %d: segmentation failed: %w", index, err)
	}

	figures := make([]models.Figure, 0, len(candidates))
	captions := make([]string, 0, len(candidates))

	for i, c := range candidates {
		figures = append(figures, c.Figure)

		if c.Caption == nil {
			captions = append(captions, "")
			continue
		}

		res := p.recognizer.Recognize(ctx, c.Caption.Image)
		if !res.OK() {
			logCtx.Warn("Caption OCR unavailable.", "figure", i, "error", res.Err)
		}
		captions = append(captions, res.String())
	}

	result := models.NewPageResult(index, textclean.Clean(body), figures, captions)
	logCtx.Info("Page extracted.", "figures", len(result.Figures), "ocrText", usedOCR)

	return result, nil
}
