package models

// These structs define the JSON payloads for HTTP requests and responses
// of the page-extractor function.

// PageExtractorRequest is the input for the page-extractor function.
// PageNumber is 1-based, matching how pages are addressed by callers.
type PageExtractorRequest struct {
	DocumentID  string `json:"documentId"`
	PageNumber  int    `json:"pageNumber"`
	GCSUri      string `json:"gcsUri"`
	ExecutionID string `json:"executionId"`
}

// PageExtractorResponse is the output of the page-extractor function.
type PageExtractorResponse struct {
	Status       string   `json:"status"`
	Text         string   `json:"text"`
	FigureCount  int      `json:"figureCount"`
	Captions     []string `json:"captions"`
	OutputGCSUri string   `json:"outputGcsUri"`
}
