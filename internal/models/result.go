package models

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// DocumentResult collects page results keyed by page index. Pages arrive in
// completion order; Indices and Ordered recover document order.
type DocumentResult struct {
	TotalPages int
	Pages      map[PageIndex]PageResult
	Failed     map[PageIndex]error

	mu sync.Mutex
}

func NewDocumentResult(totalPages int) *DocumentResult {
	return &DocumentResult{
		TotalPages: totalPages,
		Pages:      make(map[PageIndex]PageResult, totalPages),
		Failed:     make(map[PageIndex]error),
	}
}

// Add stores a completed page. Each index may be written once. The stored
// page always has one caption per figure, whatever the caller built.
func (d *DocumentResult) Add(page PageResult) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(page.Index); err != nil {
		return err
	}
	d.Pages[page.Index] = NewPageResult(page.Index, page.Text, page.Figures, page.Captions)
	return nil
}

// Fail records a page that could not be extracted. The page is excluded from Pages.
func (d *DocumentResult) Fail(index PageIndex, cause error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLocked(index); err != nil {
		return err
	}
	d.Failed[index] = cause
	return nil
}

func (d *DocumentResult) checkLocked(index PageIndex) error {
	if index < 0 || int(index) >= d.TotalPages {
		return fmt.Errorf("page index %d out of range [0, %d)", index, d.TotalPages)
	}
	if _, ok := d.Pages[index]; ok {
		return fmt.Errorf("page %d already recorded", index)
	}
	if _, ok := d.Failed[index]; ok {
		return fmt.Errorf("page %d already recorded as failed", index)
	}
	return nil
}

// Indices returns the indices of the successfully extracted pages in ascending order.
func (d *DocumentResult) Indices() []PageIndex {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.Pages))
}

// FailedIndices returns the indices of the excluded pages in ascending order.
func (d *DocumentResult) FailedIndices() []PageIndex {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Sorted(maps.Keys(d.Failed))
}

// Ordered returns the extracted pages sorted by index.
func (d *DocumentResult) Ordered() []PageResult {
	indices := d.Indices()

	d.mu.Lock()
	defer d.mu.Unlock()

	pages := make([]PageResult, 0, len(indices))
	for _, i := range indices {
		pages = append(pages, d.Pages[i])
	}
	return pages
}

// FigureCount returns the number of figures across all extracted pages.
func (d *DocumentResult) FigureCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, p := range d.Pages {
		n += len(p.Figures)
	}
	return n
}
