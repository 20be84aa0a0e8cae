// Package ocr defines how page and caption images are turned into text.
//
// Recognition is best-effort: a Recognizer reports failures as an
// Unavailable result instead of an error, so callers can tell "nothing was
// recognized" apart from "the service could not be reached" without ever
// aborting page extraction because of OCR.
package ocr

import (
	"context"
	"errors"
	"image"
)

var (
	ErrNoCredential = errors.New("ocr credential not available")
	ErrDisabled     = errors.New("ocr disabled")
)

// Recognizer turns an image region into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) Result
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, img image.Image) Result

func (f RecognizerFunc) Recognize(ctx context.Context, img image.Image) Result {
	return f(ctx, img)
}

// Disabled answers every request with Unavailable(Cause).
type Disabled struct {
	Cause error
}

func (d Disabled) Recognize(ctx context.Context, img image.Image) Result {
	if d.Cause == nil {
		return Unavailable(ErrDisabled)
	}
	return Unavailable(d.Cause)
}
