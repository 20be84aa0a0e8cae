// Package render turns PDF pages into rasters and reads their embedded text
// layer. Pages are rendered with MuPDF through go-fitz; files are validated
// with pdfcpu before MuPDF ever sees them.
package render

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const DefaultDPI = 300

var ErrInvalidPage = errors.New("page index out of range")

// Validate checks that path parses as a PDF and returns its page count.
func Validate(path string) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.ValidateFile(path, conf); err != nil {
		return 0, fmt.Errorf("failed to validate PDF: %w", err)
	}

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return pageCount, nil
}

// Document is an open PDF. go-fitz serializes access to the underlying MuPDF
// context, so a Document may be shared by concurrent page workers.
type Document struct {
	doc   *fitz.Document
	dpi   float64
	pages int
}

// Open validates and opens the PDF at path. dpi <= 0 selects DefaultDPI.
func Open(path string, dpi int) (*Document, error) {
	if _, err := Validate(path); err != nil {
		return nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	if dpi <= 0 {
		dpi = DefaultDPI
	}

	return &Document{
		doc:   doc,
		dpi:   float64(dpi),
		pages: doc.NumPage(),
	}, nil
}

func (d *Document) NumPages() int {
	return d.pages
}

// Raster renders the page at the document's DPI.
func (d *Document) Raster(index models.PageIndex) (image.Image, error) {
	if err := d.check(index); err != nil {
		return nil, err
	}

	img, err := d.doc.ImageDPI(int(index), d.dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", index, err)
	}
	return img, nil
}

// EmbeddedText returns the page's text layer, trimmed; scanned pages yield "".
func (d *Document) EmbeddedText(index models.PageIndex) (string, error) {
	if err := d.check(index); err != nil {
		return "", err
	}

	text, err := d.doc.Text(int(index))
	if err != nil {
		return "", fmt.Errorf("failed to read text of page %d: %w", index, err)
	}
	return strings.TrimSpace(text), nil
}

func (d *Document) Close() error {
	return d.doc.Close()
}

func (d *Document) check(index models.PageIndex) error {
	if index < 0 || int(index) >= d.pages {
		return fmt.Errorf("%w: %d of %d", ErrInvalidPage, index, d.pages)
	}
	return nil
}
