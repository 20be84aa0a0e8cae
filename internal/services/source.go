package services

import (
	"image"

	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/Lllllllleong/figureflow/internal/render"
)

// PageSource provides, per page, the rendered raster and the embedded text layer.
type PageSource interface {
	NumPages() int
	Raster(index models.PageIndex) (image.Image, error)
	EmbeddedText(index models.PageIndex) (string, error)
}

// SourceOpener opens a document. A failure here is fatal for the whole job.
// Sources that implement io.Closer are closed when the job finishes.
type SourceOpener func() (PageSource, error)

// OpenPDF returns an opener rendering the PDF at path with the given DPI.
func OpenPDF(path string, dpi int) SourceOpener {
	return func() (PageSource, error) {
		doc, err := render.Open(path, dpi)
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
}
