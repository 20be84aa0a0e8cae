package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/figureflow/internal/gcp"
	"github.com/Lllllllleong/figureflow/internal/render"
	"github.com/Lllllllleong/figureflow/internal/segment"
)

// PipelineConfig holds the extraction settings shared by every entry point.
type PipelineConfig struct {
	DPI           int
	Workers       int
	MinFigureArea int
	OCR           OCRConfig
}

func LoadPipelineConfig() PipelineConfig {
	return PipelineConfig{
		DPI:           gcp.GetEnvInt("RENDER_DPI", render.DefaultDPI),
		Workers:       gcp.GetEnvInt("WORKERS", DefaultWorkers()),
		MinFigureArea: gcp.GetEnvInt("MIN_FIGURE_AREA", segment.DefaultOptions().MinArea),
		OCR:           LoadOCRConfig(),
	}
}

func (c PipelineConfig) Validate() error {
	if c.DPI <= 0 {
		return fmt.Errorf("RENDER_DPI must be positive, got %d", c.DPI)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.MinFigureArea < 0 {
		return fmt.Errorf("MIN_FIGURE_AREA must not be negative, got %d", c.MinFigureArea)
	}
	return nil
}

// NewPageExtractorFromConfig wires the OCR provider and segmenter for cfg.
// The returned function releases the OCR provider.
func NewPageExtractorFromConfig(ctx context.Context, cfg PipelineConfig) (*PageExtractor, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	recognizer, closeFn, err := NewRecognizer(ctx, cfg.OCR)
	if err != nil {
		return nil, nil, err
	}

	segmenter := segment.New(segment.WithMinArea(cfg.MinFigureArea))
	return NewPageExtractor(recognizer, segmenter), closeFn, nil
}
