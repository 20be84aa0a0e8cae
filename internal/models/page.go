package models

import (
	"image"
	"slices"
)

// PageIndex is the zero-based position of a page within its document.
type PageIndex int

// Figure is a rectangular region cropped out of a page raster. Image is an
// independent copy of the pixels, so it outlives the raster it came from.
type Figure struct {
	Box   image.Rectangle
	Image *image.RGBA
}

// PageResult is the extraction output for one page. Captions is index-aligned
// with Figures; use NewPageResult and RemoveFigure to keep it that way.
type PageResult struct {
	Index    PageIndex
	Text     string
	Figures  []Figure
	Captions []string
}

// NewPageResult builds a PageResult, padding captions with empty strings or
// dropping surplus ones so that len(Captions) == len(Figures).
func NewPageResult(index PageIndex, text string, figures []Figure, captions []string) PageResult {
	aligned := make([]string, len(figures))
	copy(aligned, captions)

	return PageResult{
		Index:    index,
		Text:     text,
		Figures:  slices.Clone(figures),
		Captions: aligned,
	}
}

// RemoveFigure deletes the i-th figure together with its caption.
func (p *PageResult) RemoveFigure(i int) bool {
	if i < 0 || i >= len(p.Figures) {
		return false
	}

	p.Figures = slices.Delete(p.Figures, i, i+1)
	p.Captions = slices.Delete(p.Captions, i, i+1)
	return true
}
