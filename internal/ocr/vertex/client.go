// Package vertex transcribes image regions with a Gemini model on Vertex AI.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/figureflow/internal/ocr"
)

var _ ocr.Recognizer = &Client{}

// ErrNoTranscription is reported when the model returns no usable candidate,
// for example because the answer was blocked or truncated.
var ErrNoTranscription = errors.New("gemini returned no transcription")

type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

type Client struct {
	generate generateFunc
	prompt   string

	timeout time.Duration
	encode  ocr.EncodeOptions
}

type Option func(*Client)

func WithEncodeOptions(options ocr.EncodeOptions) Option {
	return func(c *Client) {
		c.encode = options
	}
}

// WithTimeout bounds each model call. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New wraps a model that has already been configured with a transcription
// system instruction. prompt is sent alongside every image.
func New(model *genai.GenerativeModel, prompt string, options ...Option) *Client {
	c := &Client{
		prompt: prompt,

		timeout: 60 * time.Second,
		encode:  ocr.DefaultEncodeOptions(),
	}
	if model != nil {
		c.generate = model.GenerateContent
	}

	for _, option := range options {
		option(c)
	}

	return c
}

func (c *Client) Recognize(ctx context.Context, img image.Image) ocr.Result {
	if c.generate == nil {
		return ocr.Unavailable(errors.New("vertex model not configured"))
	}

	encoded, err := ocr.Encode(img, c.encode)
	if err != nil {
		return ocr.Unavailable(err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	format := strings.TrimPrefix(encoded.ContentType, "image/")

	resp, err := c.generate(ctx, genai.ImageData(format, encoded.Data), genai.Text(c.prompt))
	if err != nil {
		return ocr.Unavailable(fmt.Errorf("failed to generate content from gemini: %w", err))
	}

	if err := checkResponse(resp); err != nil {
		return ocr.Unavailable(err)
	}

	return ocr.Recognized(extractText(resp))
}

// checkResponse accepts only a first candidate that finished normally.
func checkResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ErrNoTranscription
	}

	if reason := resp.Candidates[0].FinishReason; reason != genai.FinishReasonStop {
		return fmt.Errorf("%w: finish reason %s", ErrNoTranscription, reason)
	}
	return nil
}

// extractText concatenates the text parts of the first candidate and strips
// any code fence the model wrapped around them.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			builder.WriteString(string(txt))
		}
	}

	text := strings.TrimSpace(builder.String())
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
