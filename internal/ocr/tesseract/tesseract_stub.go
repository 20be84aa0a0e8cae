//go:build !tesseract

// Package tesseract recognizes text locally with the Tesseract engine.
//
// This is the stub used when the "tesseract" build tag is not set: New always
// returns ErrNotEnabled. Rebuild with -tags tesseract to enable it.
package tesseract

import (
	"context"
	"errors"
	"image"

	"github.com/Lllllllleong/figureflow/internal/ocr"
)

// ErrNotEnabled is returned when Tesseract support was not compiled in.
var ErrNotEnabled = errors.New("tesseract support not enabled; rebuild with -tags tesseract")

// Client is a stub whose every call is unavailable.
type Client struct{}

func New(languages ...string) (*Client, error) {
	return nil, ErrNotEnabled
}

// Close is safe to call on a nil client.
func (c *Client) Close() error {
	return nil
}

func (c *Client) Recognize(ctx context.Context, img image.Image) ocr.Result {
	return ocr.Unavailable(ErrNotEnabled)
}
