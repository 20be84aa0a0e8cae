// Package segment locates figure-like regions on a rendered page and the
// caption strip directly beneath each of them.
package segment

import (
	"cmp"
	"errors"
	"image"
	"slices"

	"github.com/Lllllllleong/figureflow/internal/models"

	"golang.org/x/image/draw"
)

var ErrEmptyRaster = errors.New("empty raster")

// Candidate is a detected figure and, when there is room below it, the strip
// that may hold its caption.
type Candidate struct {
	Figure  models.Figure
	Caption *models.Figure
}

type Segmenter struct {
	options Options
}

func New(options ...Option) *Segmenter {
	o := DefaultOptions()

	for _, option := range options {
		option(&o)
	}

	return &Segmenter{options: o}
}

func (s *Segmenter) Options() Options {
	return s.options
}

// Segment returns the figure candidates of a page raster ordered top to
// bottom, then left to right. Boxes are relative to the raster's top-left corner.
func (s *Segmenter) Segment(img image.Image) ([]Candidate, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyRaster
	}

	page := Flatten(img)

	binary := binarize(page, s.options.Threshold).closing(s.options.KernelSize)

	var result []Candidate

	for _, box := range externalRegions(binary) {
		if !s.accept(box) {
			continue
		}

		candidate := Candidate{
			Figure: models.Figure{Box: box, Image: Crop(page, box)},
		}

		if strip, ok := s.captionStrip(box, page.Bounds()); ok {
			candidate.Caption = &models.Figure{Box: strip, Image: Crop(page, strip)}
		}

		result = append(result, candidate)
	}

	slices.SortFunc(result, func(a, b Candidate) int {
		return cmp.Or(
			cmp.Compare(a.Figure.Box.Min.Y, b.Figure.Box.Min.Y),
			cmp.Compare(a.Figure.Box.Min.X, b.Figure.Box.Min.X),
		)
	})

	return result, nil
}

func (s *Segmenter) accept(box image.Rectangle) bool {
	w, h := box.Dx(), box.Dy()
	if w <= 0 || h <= 0 {
		return false
	}

	if w*h <= s.options.MinArea {
		return false
	}

	aspect := float64(w) / float64(h)
	return aspect > s.options.MinAspect && aspect < s.options.MaxAspect
}

func (s *Segmenter) captionStrip(box, page image.Rectangle) (image.Rectangle, bool) {
	height := min(s.options.CaptionMaxHeight, page.Max.Y-box.Max.Y)

	if height <= s.options.CaptionMinHeight {
		return image.Rectangle{}, false
	}

	return image.Rect(box.Min.X, box.Max.Y, box.Max.X, box.Max.Y+height), true
}

// Flatten copies img into an opaque RGBA image anchored at the origin,
// compositing any transparency over white.
func Flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)

	return dst
}

// Crop returns an independent copy of r within img, anchored at the origin.
func Crop(img *image.RGBA, r image.Rectangle) *image.RGBA {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))

	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)

	return dst
}
