package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// EncodeOptions bound the payload sent to an OCR provider.
type EncodeOptions struct {
	// MaxSide is the longest allowed edge in pixels; larger images are downscaled. 0 disables.
	MaxSide int

	// MaxBytes is the PNG size above which the image is re-encoded as JPEG. 0 disables.
	MaxBytes int

	JPEGQuality int
}

func DefaultEncodeOptions() EncodeOptions {
	return EncodeOptions{
		MaxSide:     4096,
		MaxBytes:    3 << 20,
		JPEGQuality: 85,
	}
}

// Encoded is an image payload ready for upload.
type Encoded struct {
	Data        []byte
	ContentType string
}

// Encode serializes img as PNG, shrinking it to fit MaxSide and falling back
// to JPEG when the PNG would exceed MaxBytes.
func Encode(img image.Image, options EncodeOptions) (Encoded, error) {
	if img == nil || img.Bounds().Empty() {
		return Encoded{}, errors.New("empty image")
	}

	img = fit(img, options.MaxSide)

	var buf bytes.Buffer

	if err := png.Encode(&buf, img); err != nil {
		return Encoded{}, fmt.Errorf("encode png: %w", err)
	}

	if options.MaxBytes <= 0 || buf.Len() <= options.MaxBytes {
		return Encoded{Data: buf.Bytes(), ContentType: "image/png"}, nil
	}

	buf.Reset()

	quality := options.JPEGQuality
	if quality <= 0 {
		quality = jpeg.DefaultQuality
	}

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return Encoded{}, fmt.Errorf("encode jpeg: %w", err)
	}

	return Encoded{Data: buf.Bytes(), ContentType: "image/jpeg"}, nil
}

func fit(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())

	if maxSide <= 0 || longest <= maxSide {
		return img
	}

	w := max(1, b.Dx()*maxSide/longest)
	h := max(1, b.Dy()*maxSide/longest)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	return dst
}
