package models

import "time"

// Document represents the main record for a PDF extraction job in Firestore.
// It tracks the overall status and metadata of the file.
type Document struct {
	FileHash            string    `firestore:"fileHash,omitempty"`
	OriginalFilename    string    `firestore:"originalFilename,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	FailedPages         []int     `firestore:"failedPages,omitempty"`
	FigureCount         int       `firestore:"figureCount,omitempty"`
	ExportPrefix        string    `firestore:"exportPrefix,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}

// Status values written to Document.Status.
const (
	StatusValidating = "VALIDATING"
	StatusExtracting = "EXTRACTING"
	StatusExporting  = "EXPORTING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)
