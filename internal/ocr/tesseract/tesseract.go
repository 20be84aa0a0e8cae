//go:build tesseract

// Package tesseract recognizes text locally with the Tesseract engine via
// gosseract. It requires Tesseract and its development headers, and is only
// compiled with the "tesseract" build tag:
//
//	go build -tags tesseract ./...
package tesseract

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/Lllllllleong/figureflow/internal/ocr"
	"github.com/otiai10/gosseract/v2"
)

var _ ocr.Recognizer = &Client{}

// Client wraps a single Tesseract engine. The engine is not safe for
// concurrent use, so calls are serialized.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client

	encode ocr.EncodeOptions
}

// New creates a Tesseract client for the given languages (e.g. "chi_sim", "eng").
// The client should be closed when no longer needed.
func New(languages ...string) (*Client, error) {
	client := gosseract.NewClient()

	if len(languages) > 0 {
		if err := client.SetLanguage(languages...); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set language: %w", err)
		}
	}

	return &Client{
		client: client,
		encode: ocr.EncodeOptions{},
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) Recognize(ctx context.Context, img image.Image) ocr.Result {
	if err := ctx.Err(); err != nil {
		return ocr.Unavailable(err)
	}

	encoded, err := ocr.Encode(img, c.encode)
	if err != nil {
		return ocr.Unavailable(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.SetImageFromBytes(encoded.Data); err != nil {
		return ocr.Unavailable(fmt.Errorf("failed to set image: %w", err))
	}

	text, err := c.client.Text()
	if err != nil {
		return ocr.Unavailable(fmt.Errorf("OCR failed: %w", err))
	}

	return ocr.Recognized(strings.TrimSpace(text))
}
