package services_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"

	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/Lllllllleong/figureflow/internal/ocr"
)

type fakePage struct {
	text      string
	textErr   error
	raster    image.Image
	rasterErr error
	panics    bool
}

type fakeSource struct {
	pages []fakePage

	// gate, when set, blocks Raster until it is closed; started receives the
	// index of every page that reached Raster.
	gate    chan struct{}
	started chan models.PageIndex

	rasterCalls atomic.Int32
	closed      atomic.Bool
}

func (s *fakeSource) NumPages() int {
	return len(s.pages)
}

func (s *fakeSource) Raster(index models.PageIndex) (image.Image, error) {
	s.rasterCalls.Add(1)
	if s.started != nil {
		s.started <- index
	}
	if s.gate != nil {
		<-s.gate
	}

	p := s.pages[index]
	if p.rasterErr != nil {
		return nil, p.rasterErr
	}
	return p.raster, nil
}

func (s *fakeSource) EmbeddedText(index models.PageIndex) (string, error) {
	p := s.pages[index]
	if p.panics {
		panic("corrupt page")
	}
	return p.text, p.textErr
}

func (s *fakeSource) Close() error {
	s.closed.Store(true)
	return nil
}

// blankPage returns a white page raster of w×h.
func blankPage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// pageWithFigure returns a white page with a solid black block covering box.
func pageWithFigure(w, h int, box image.Rectangle) *image.RGBA {
	img := blankPage(w, h)
	draw.Draw(img, box, image.NewUniform(color.Black), image.Point{}, draw.Src)
	return img
}

// sizeRecognizer answers with a fixed text per image size and counts calls.
type sizeRecognizer struct {
	mu      sync.Mutex
	answers map[image.Point]string
	calls   []image.Point
}

func (r *sizeRecognizer) Recognize(ctx context.Context, img image.Image) ocr.Result {
	size := img.Bounds().Size()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, size)

	text, ok := r.answers[size]
	if !ok {
		return ocr.Unavailable(errors.New("unexpected image size"))
	}
	return ocr.Recognized(text)
}

func (r *sizeRecognizer) Calls() []image.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]image.Point(nil), r.calls...)
}

// scenario builds the three page document: embedded text only, a scanned page
// with one captioned figure, and a page that cannot be rendered.
func scenario() (*fakeSource, *sizeRecognizer) {
	src := &fakeSource{
		pages: []fakePage{
			{text: "Hello 图1 World", raster: blankPage(600, 800)},
			{text: "", raster: pageWithFigure(600, 800, image.Rect(10, 10, 410, 310))},
			{text: "lost", rasterErr: errors.New("render failed")},
		},
	}
	rec := &sizeRecognizer{answers: map[image.Point]string{
		{X: 400, Y: 200}: "Fig 2",
		{X: 600, Y: 800}: "扫描页",
	}}
	return src, rec
}

func collect(events <-chan models.Event) []models.Event {
	var all []models.Event
	for e := range events {
		all = append(all, e)
	}
	return all
}
