package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/figureflow/internal/gcp"
	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

type ExtractorConfig struct {
	ProjectID        string
	ExportBucket     string
	CollectionName   string
	WorkflowID       string
	WorkflowLocation string
	Pipeline         PipelineConfig
}

// ExtractorFunction extracts a PDF uploaded to GCS and exports the result to
// the export bucket, tracking progress in a Firestore record.
type ExtractorFunction struct {
	storageClient    *storage.Client
	firestoreClient  *firestore.Client
	executionsClient *executions.Client
	extractor        *PageExtractor
	closeOCR         func() error
	config           ExtractorConfig
}

type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func NewExtractorFunction(ctx context.Context) (*ExtractorFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := ExtractorConfig{
		ProjectID:        projectID,
		ExportBucket:     gcp.GetEnv("EXPORT_BUCKET", ""),
		CollectionName:   gcp.GetEnv("FIRESTORE_COLLECTION", "documents"),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
		WorkflowID:       gcp.GetEnv("REVIEW_WORKFLOW_ID", ""),
		Pipeline:         LoadPipelineConfig(),
	}
	if config.ExportBucket == "" {
		return nil, fmt.Errorf("EXPORT_BUCKET environment variable must be set")
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}

	var executionsClient *executions.Client
	if config.WorkflowID != "" {
		executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}

	extractor, closeOCR, err := NewPageExtractorFromConfig(ctx, config.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to create page extractor: %w", err)
	}

	f := &ExtractorFunction{
		firestoreClient:  firestoreClient,
		storageClient:    storageClient,
		executionsClient: executionsClient,
		extractor:        extractor,
		closeOCR:         closeOCR,
		config:           config,
	}
	slog.Info("PDF Extractor logic initialized.", "exportBucket", config.ExportBucket, "workflowId", config.WorkflowID)
	return f, nil
}

func (f *ExtractorFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	tempDir, err := os.MkdirTemp("", "pdf-extractor-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePdfPath := filepath.Join(tempDir, "source.pdf")
	if err := gcp.DownloadObject(ctx, f.storageClient, e.Bucket, e.Name, sourcePdfPath); err != nil {
		logCtx.Error("Failed to download source PDF", "error", err)
		return err
	}

	fileHash, err := calculateFileHash(sourcePdfPath)
	if err != nil {
		logCtx.Error("Failed to calculate file hash", "error", err)
		return fmt.Errorf("failed to calculate file hash: %w", err)
	}
	logCtx = logCtx.With("fileHash", fileHash)

	isDuplicate, docID, err := f.isDuplicate(ctx, fileHash)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if isDuplicate {
		logCtx.Info("Duplicate file detected. Skipping.", "existingDocId", docID)
		return nil
	}

	docRef, err := f.createInitialDocument(ctx, fileHash, e.Name)
	if err != nil {
		logCtx.Error("Failed to create initial Firestore document", "error", err)
		return err
	}
	logCtx = logCtx.With("documentId", docRef.ID)
	logCtx.Info("Created master document in Firestore.")

	optimizedPdfPath := filepath.Join(tempDir, "optimized.pdf")
	pageCount, err := f.optimizeAndPrepare(ctx, logCtx, docRef, sourcePdfPath, optimizedPdfPath)
	if err != nil {
		return err
	}

	result, err := f.extract(ctx, logCtx, docRef, optimizedPdfPath)
	if err != nil {
		return err
	}

	summary, err := f.export(ctx, logCtx, docRef, result)
	if err != nil {
		return err
	}

	executionID, err := f.triggerWorkflow(ctx, logCtx, docRef, pageCount, summary)
	if err != nil {
		return err
	}

	updates := []firestore.Update{
		{Path: "status", Value: models.StatusCompleted},
		{Path: "figureCount", Value: summary.FigureCount},
		{Path: "failedPages", Value: failedPageNumbers(result)},
		{Path: "exportPrefix", Value: fmt.Sprintf("gs://%s/%s", f.config.ExportBucket, docRef.ID)},
	}
	if executionID != "" {
		updates = append(updates, firestore.Update{Path: "workflowExecutionId", Value: executionID})
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return f.handleError(ctx, logCtx, docRef, "failed to update status to COMPLETED", err)
	}

	logCtx.Info("Extraction complete.", "pages", summary.PageCount, "figures", summary.FigureCount, "failedPages", len(result.Failed))
	return nil
}

func (f *ExtractorFunction) Close() error {
	if f.closeOCR != nil {
		return f.closeOCR()
	}
	return nil
}

func (f *ExtractorFunction) isDuplicate(ctx context.Context, fileHash string) (bool, string, error) {
	docs, err := f.firestoreClient.Collection(f.config.CollectionName).Where("fileHash", "==", fileHash).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	if len(docs) > 0 {
		return true, docs[0].Ref.ID, nil
	}
	return false, "", nil
}

func (f *ExtractorFunction) createInitialDocument(ctx context.Context, fileHash, filename string) (*firestore.DocumentRef, error) {
	newDoc := models.Document{
		FileHash:         fileHash,
		OriginalFilename: filename,
		Status:           models.StatusValidating,
		CreatedAt:        time.Now(),
	}
	docRef, _, err := f.firestoreClient.Collection(f.config.CollectionName).Add(ctx, newDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to create master document: %w", err)
	}
	return docRef, nil
}

func (f *ExtractorFunction) optimizeAndPrepare(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, source, optimized string) (int, error) {
	if err := optimizePDF(source, optimized); err != nil {
		return 0, f.handleError(ctx, logCtx, docRef, "failed to validate/optimize PDF", err)
	}
	pageCount, err := api.PageCountFile(optimized)
	if err != nil {
		return 0, f.handleError(ctx, logCtx, docRef, "failed to get page count", err)
	}
	updates := []firestore.Update{
		{Path: "status", Value: models.StatusExtracting},
		{Path: "pageCount", Value: pageCount},
	}
	if _, err := docRef.Update(ctx, updates); err != nil {
		return 0, f.handleError(ctx, logCtx, docRef, "failed to update status to EXTRACTING", err)
	}
	logCtx.Info("PDF optimized.", "pageCount", pageCount)
	return pageCount, nil
}

func (f *ExtractorFunction) extract(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, pdfPath string) (*models.DocumentResult, error) {
	job := NewJob(f.extractor, f.config.Pipeline.Workers)
	events := job.Run(ctx, OpenPDF(pdfPath, f.config.Pipeline.DPI))

	last := -1
	result, err := Wait(events, func(percent int) {
		// Log in steps of 10% to keep large documents readable.
		if percent/10 != last/10 {
			logCtx.Info("Extraction progress.", "percent", percent)
		}
		last = percent
	})
	if err != nil {
		return nil, f.handleError(ctx, logCtx, docRef, "extraction job failed", err)
	}
	return result, nil
}

func (f *ExtractorFunction) export(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, result *models.DocumentResult) (ExportSummary, error) {
	if err := f.updateStatus(ctx, docRef, models.StatusExporting, ""); err != nil {
		return ExportSummary{}, f.handleError(ctx, logCtx, docRef, "failed to update status to EXPORTING", err)
	}

	sink := BucketSink{
		Bucket: f.storageClient.Bucket(f.config.ExportBucket),
		Name:   f.config.ExportBucket,
		Prefix: docRef.ID,
	}
	summary, err := NewExporter(sink).Export(ctx, result)
	if err != nil {
		return ExportSummary{}, f.handleError(ctx, logCtx, docRef, "failed to export extraction result", err)
	}
	return summary, nil
}

// triggerWorkflow hands the exported document to the review workflow, when
// one is configured, and returns the execution name.
func (f *ExtractorFunction) triggerWorkflow(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, pageCount int, summary ExportSummary) (string, error) {
	if f.executionsClient == nil {
		return "", nil
	}

	logCtx.Info("Triggering review workflow.")
	workflowPayload := map[string]interface{}{
		"documentId":   docRef.ID,
		"pageCount":    pageCount,
		"figureCount":  summary.FigureCount,
		"exportPrefix": fmt.Sprintf("gs://%s/%s", f.config.ExportBucket, docRef.ID),
	}
	payloadBytes, err := json.Marshal(workflowPayload)
	if err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "failed to marshal workflow payload", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	execution, err := f.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return "", f.handleError(ctx, logCtx, docRef, "failed to trigger workflow execution", err)
	}
	return execution.GetName(), nil
}

func (f *ExtractorFunction) handleError(ctx context.Context, logCtx *slog.Logger, docRef *firestore.DocumentRef, message string, originalErr error) error {
	fullError := fmt.Sprintf("%s: %v", message, originalErr)
	logCtx.Error(message, "error", originalErr)
	if err := f.updateStatus(ctx, docRef, models.StatusFailed, fullError); err != nil {
		logCtx.Error("CRITICAL: Failed to update Firestore status to FAILED after a processing error.", "updateError", err)
	}
	return fmt.Errorf("%s: %w", message, originalErr)
}

func (f *ExtractorFunction) updateStatus(ctx context.Context, docRef *firestore.DocumentRef, status, errDetails string) error {
	updates := []firestore.Update{
		{Path: "status", Value: status},
	}
	if errDetails != "" {
		updates = append(updates, firestore.Update{Path: "errorDetails", Value: errDetails})
	}
	_, err := docRef.Update(ctx, updates)
	return err
}

// failedPageNumbers returns the 1-based numbers of pages that failed extraction.
func failedPageNumbers(result *models.DocumentResult) []int {
	failed := result.FailedIndices()
	numbers := make([]int, 0, len(failed))
	for _, idx := range failed {
		numbers = append(numbers, int(idx)+1)
	}
	return numbers
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func calculateFileHash(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
