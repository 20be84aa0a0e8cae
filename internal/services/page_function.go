package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/figureflow/internal/gcp"
	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/Lllllllleong/figureflow/internal/render"
)

type PageFunctionConfig struct {
	ProjectID    string
	ExportBucket string
	Pipeline     PipelineConfig
}

// PageFunction extracts a single page of a PDF stored in GCS.
type PageFunction struct {
	storageClient *storage.Client
	extractor     *PageExtractor
	closeOCR      func() error
	config        PageFunctionConfig
}

func loadPageFunctionConfig() (*PageFunctionConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	exportBucket := gcp.GetEnv("EXPORT_BUCKET", "")
	if exportBucket == "" {
		return nil, fmt.Errorf("EXPORT_BUCKET environment variable must be set")
	}

	return &PageFunctionConfig{
		ProjectID:    projectID,
		ExportBucket: exportBucket,
		Pipeline:     LoadPipelineConfig(),
	}, nil
}

func NewPageFunction(ctx context.Context) (*PageFunction, error) {
	config, err := loadPageFunctionConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	extractor, closeOCR, err := NewPageExtractorFromConfig(ctx, config.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to create page extractor: %w", err)
	}

	return &PageFunction{
		storageClient: storageClient,
		extractor:     extractor,
		closeOCR:      closeOCR,
		config:        *config,
	}, nil
}

// Process extracts the requested page and exports it under
// <documentId>/pages/<page>/ in the export bucket.
func (f *PageFunction) Process(ctx context.Context, req *models.PageExtractorRequest) (*models.PageExtractorResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "pageNumber", req.PageNumber, "executionId", req.ExecutionID)
	logCtx.Info("Starting page extraction.")

	if req.PageNumber < 1 {
		return nil, fmt.Errorf("pageNumber must be 1 or greater, got %d", req.PageNumber)
	}
	bucket, object, err := gcp.ParseGCSUri(req.GCSUri)
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "page-extractor-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	pdfPath := filepath.Join(tempDir, "source.pdf")
	if err := gcp.DownloadObject(ctx, f.storageClient, bucket, object, pdfPath); err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return nil, err
	}

	doc, err := render.Open(pdfPath, f.config.Pipeline.DPI)
	if err != nil {
		logCtx.Error("Failed to open PDF", "error", err)
		return nil, err
	}
	defer doc.Close()

	prefix := fmt.Sprintf("%s/pages/%05d", req.DocumentID, req.PageNumber)
	sink := BucketSink{
		Bucket: f.storageClient.Bucket(f.config.ExportBucket),
		Name:   f.config.ExportBucket,
		Prefix: prefix,
	}

	page, err := ExtractSingle(ctx, f.extractor, doc, models.PageIndex(req.PageNumber-1), sink)
	if err != nil {
		logCtx.Error("Page extraction failed", "error", err)
		return nil, err
	}

	outputGCSUri := fmt.Sprintf("gs://%s/%s", f.config.ExportBucket, prefix)
	logCtx.Info("Page extraction complete.", "figures", len(page.Figures), "output", outputGCSUri)
	return &models.PageExtractorResponse{
		Status:       "success",
		Text:         page.Text,
		FigureCount:  len(page.Figures),
		Captions:     page.Captions,
		OutputGCSUri: outputGCSUri,
	}, nil
}

func (f *PageFunction) Close() error {
	if f.closeOCR != nil {
		return f.closeOCR()
	}
	return nil
}

// ExtractSingle extracts one page of src and exports it to sink as a
// one-page document.
func ExtractSingle(ctx context.Context, extractor *PageExtractor, src PageSource, index models.PageIndex, sink Sink) (models.PageResult, error) {
	total := src.NumPages()
	if index < 0 || int(index) >= total {
		return models.PageResult{}, fmt.Errorf("page %d of %d: %w", index+1, total, render.ErrInvalidPage)
	}

	page, err := extractor.Extract(ctx, src, index)
	if err != nil {
		return models.PageResult{}, err
	}

	doc := models.NewDocumentResult(total)
	if err := doc.Add(page); err != nil {
		return models.PageResult{}, err
	}
	if _, err := NewExporter(sink).Export(ctx, doc); err != nil {
		return models.PageResult{}, err
	}
	return page, nil
}
