package ocr

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/time/rate"
)

type limitedRecognizer struct {
	limiter    *rate.Limiter
	recognizer Recognizer
}

// NewLimited throttles r to the rate allowed by l. A nil limiter disables throttling.
func NewLimited(l *rate.Limiter, r Recognizer) Recognizer {
	return &limitedRecognizer{
		limiter:    l,
		recognizer: r,
	}
}

func (r *limitedRecognizer) Recognize(ctx context.Context, img image.Image) Result {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return Unavailable(fmt.Errorf("rate limit wait: %w", err))
		}
	}

	return r.recognizer.Recognize(ctx, img)
}
