package services_test

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/Lllllllleong/figureflow/internal/segment"
	"github.com/Lllllllleong/figureflow/internal/services"

	"github.com/stretchr/testify/require"
)

func exportFixture(t *testing.T) *models.DocumentResult {
	t.Helper()

	fig := func(box image.Rectangle) models.Figure {
		return models.Figure{Box: box, Image: segment.Crop(blankPage(600, 800), box)}
	}

	doc := models.NewDocumentResult(4)
	require.NoError(t, doc.Add(models.NewPageResult(2, "third\n", []models.Figure{fig(image.Rect(0, 0, 30, 20))}, []string{"图乙 <A&B>"})))
	require.NoError(t, doc.Add(models.NewPageResult(0, "  first  ", nil, nil)))
	require.NoError(t, doc.Add(models.NewPageResult(1, "second", []models.Figure{
		fig(image.Rect(0, 0, 10, 10)),
		fig(image.Rect(0, 20, 40, 50)),
	}, []string{"Fig 1"})))
	require.NoError(t, doc.Fail(3, errors.New("render failed")))
	return doc
}

func TestExportToDirectory(t *testing.T) {
	dir := t.TempDir()

	summary, err := services.NewExporter(services.DirSink{Root: dir}).Export(context.Background(), exportFixture(t))
	require.NoError(t, err)
	require.Equal(t, 3, summary.PageCount)
	require.Equal(t, 3, summary.FigureCount)

	text, err := os.ReadFile(filepath.Join(dir, "export.md"))
	require.NoError(t, err)
	require.Equal(t, "first\n\nsecond\n\nthird", string(text))

	sizes := map[string]image.Point{
		"fig001.png": {X: 10, Y: 10},
		"fig002.png": {X: 40, Y: 30},
		"fig003.png": {X: 30, Y: 20},
	}
	for name, size := range sizes {
		f, err := os.Open(filepath.Join(dir, "images", name))
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		require.Equal(t, size, img.Bounds().Size(), name)
	}

	descriptions, err := os.ReadFile(filepath.Join(dir, "image_descriptions.json"))
	require.NoError(t, err)
	require.Equal(t, `{
  "fig001.png": "Fig 1",
  "fig002.png": "",
  "fig003.png": "图乙 <A&B>"
}`, string(descriptions))
}

func TestExportEmptyDocument(t *testing.T) {
	dir := t.TempDir()

	summary, err := services.NewExporter(services.DirSink{Root: dir}).Export(context.Background(), models.NewDocumentResult(0))
	require.NoError(t, err)
	require.Zero(t, summary.FigureCount)

	text, err := os.ReadFile(filepath.Join(dir, "export.md"))
	require.NoError(t, err)
	require.Empty(t, text)

	descriptions, err := os.ReadFile(filepath.Join(dir, "image_descriptions.json"))
	require.NoError(t, err)
	require.Equal(t, "{}", string(descriptions))
}

type failingSink struct {
	err error
}

func (s failingSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	return s.err
}

func TestExportSinkFailure(t *testing.T) {
	_, err := services.NewExporter(failingSink{err: errors.New("disk full")}).Export(context.Background(), exportFixture(t))
	require.ErrorContains(t, err, "disk full")
}

func TestExtractSingleExportsOnePage(t *testing.T) {
	src, rec := scenario()
	dir := t.TempDir()

	page, err := services.ExtractSingle(context.Background(), services.NewPageExtractor(rec, segment.New()), src, 1, services.DirSink{Root: dir})
	require.NoError(t, err)
	require.Equal(t, []string{"Fig 2"}, page.Captions)

	text, err := os.ReadFile(filepath.Join(dir, "export.md"))
	require.NoError(t, err)
	require.Equal(t, "扫描页", string(text))
	require.FileExists(t, filepath.Join(dir, "images", "fig001.png"))

	_, err = services.ExtractSingle(context.Background(), services.NewPageExtractor(rec, segment.New()), src, 3, services.DirSink{Root: dir})
	require.Error(t, err)
}

func TestExportMisalignedPage(t *testing.T) {
	box := image.Rect(0, 0, 10, 10)
	fig := models.Figure{Box: box, Image: segment.Crop(blankPage(20, 20), box)}

	doc := models.NewDocumentResult(2)
	require.NoError(t, doc.Add(models.PageResult{Index: 0, Text: "added", Figures: []models.Figure{fig}}))
	// Written straight into the map, bypassing Add.
	doc.Pages[1] = models.PageResult{Index: 1, Text: "raw", Figures: []models.Figure{fig}}

	dir := t.TempDir()
	var summary services.ExportSummary
	require.NotPanics(t, func() {
		var err error
		summary, err = services.NewExporter(services.DirSink{Root: dir}).Export(context.Background(), doc)
		require.NoError(t, err)
	})
	require.Equal(t, 2, summary.FigureCount)

	descriptions, err := os.ReadFile(filepath.Join(dir, "image_descriptions.json"))
	require.NoError(t, err)
	require.Equal(t, "{\n  \"fig001.png\": \"\",\n  \"fig002.png\": \"\"\n}", string(descriptions))
}
