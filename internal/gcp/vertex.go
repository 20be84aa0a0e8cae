package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- OCR Model Prompts ---
const OCRSystemPrompt = "You are an OCR engine. You transcribe the text visible in an image exactly as printed, without translating, summarizing or describing the image."
const OCRUserPrompt = `Transcribe all text in the provided image.

Follow these rules precisely:
1.  Output one printed line per output line, top to bottom.
2.  Keep the original language, punctuation and numbering (for example "图 3-2").
3.  Do not describe pictures, charts or photographs; only transcribe printed characters.
4.  If the image contains no legible text, return an empty response.

Return ONLY the transcribed text. Do not include any preambles or surround the output with backtick fences.`

// DefaultOCRModel is the Gemini model used for transcription.
const DefaultOCRModel = "gemini-1.5-pro"

// VertexClient holds the pre-configured generative model used for OCR.
type VertexClient struct {
	OCRModel   *genai.GenerativeModel
	baseClient *genai.Client
}

// NewVertexClient creates a new client holding the transcription model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultOCRModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	ocrModel := baseClient.GenerativeModel(modelName)
	ocrModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(OCRSystemPrompt)},
	}
	ocrModel.GenerationConfig = genai.GenerationConfig{
		// Transcription must be deterministic.
		Temperature: genai.Ptr[float32](0.0),
	}
	ocrModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		OCRModel:   ocrModel,
		baseClient: baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
