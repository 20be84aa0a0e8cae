package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MaxWorkers caps the default pool size.
const MaxWorkers = 8

// DefaultWorkers returns min(MaxWorkers, NumCPU).
func DefaultWorkers() int {
	return min(MaxWorkers, runtime.NumCPU())
}

// Job extracts every page of a document on a bounded worker pool.
type Job struct {
	extractor *PageExtractor
	workers   int
}

func NewJob(extractor *PageExtractor, workers int) *Job {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	return &Job{
		extractor: extractor,
		workers:   workers,
	}
}

// Run starts the job and returns its event stream. Progress events follow
// every finished page, successful or not, and the stream ends with exactly one
// terminal event before it is closed. The caller must drain the channel.
//
// Cancelling ctx stops dispatching new pages. Pages already running finish,
// and the terminal event is then an error carrying the cancellation cause.
func (j *Job) Run(ctx context.Context, open SourceOpener) <-chan models.Event {
	events := make(chan models.Event, 1)

	go func() {
		defer close(events)

		jobID := uuid.NewString()
		logCtx := slog.With("jobId", jobID)

		src, err := open()
		if err != nil {
			logCtx.Error("Failed to open document.", "error", err)
			events <- models.Event{Kind: models.EventError, Message: fmt.Sprintf("failed to open document: %v", err)}
			return
		}
		if c, ok := src.(io.Closer); ok {
			defer c.Close()
		}

		total := src.NumPages()
		logCtx = logCtx.With("pageCount", total)
		logCtx.Info("Extraction job started.", "workers", j.workers)

		result := models.NewDocumentResult(total)
		if total == 0 {
			events <- models.Event{Kind: models.EventProgress, Percent: 100}
			events <- models.Event{Kind: models.EventDone, Result: result}
			return
		}

		finished := make(chan models.PageIndex, total)
		dispatched := j.dispatch(ctx, logCtx, src, total, result, finished)

		done := 0
		for range finished {
			done++
			events <- models.Event{Kind: models.EventProgress, Percent: done * 100 / total}
		}

		if n := <-dispatched; n < total {
			cause := context.Cause(ctx)
			if cause == nil {
				cause = errors.New("job stopped early")
			}
			logCtx.Warn("Extraction job cancelled.", "dispatched", n, "error", cause)
			events <- models.Event{
				Kind:    models.EventError,
				Message: fmt.Sprintf("extraction cancelled after %d of %d pages: %v", n, total, cause),
			}
			return
		}

		logCtx.Info("Extraction job finished.", "pages", len(result.Pages), "failedPages", len(result.Failed))
		events <- models.Event{Kind: models.EventDone, Result: result}
	}()

	return events
}

// dispatch submits pages to the pool until all are submitted or ctx is done.
// A slot is taken from sem before a page is submitted and returned when the
// page finishes, so cancellation is observed while waiting for a free worker.
// Every submitted page reports its index on finished, which is closed once
// the pool drains. The number of submitted pages is sent on the returned
// channel after that.
func (j *Job) dispatch(ctx context.Context, logCtx *slog.Logger, src PageSource, total int, result *models.DocumentResult, finished chan<- models.PageIndex) <-chan int {
	dispatched := make(chan int, 1)
	pageCtx := context.WithoutCancel(ctx)
	sem := make(chan struct{}, j.workers)

	var eg errgroup.Group

	go func() {
		n := 0
		for n < total && acquire(ctx, sem) {
			index := models.PageIndex(n)
			eg.Go(func() error {
				defer func() { <-sem }()
				j.process(pageCtx, logCtx, src, index, result)
				finished <- index
				return nil
			})
			n++
		}

		_ = eg.Wait()
		close(finished)
		dispatched <- n
	}()

	return dispatched
}

// acquire takes a slot from sem unless ctx is done first.
func acquire(ctx context.Context, sem chan struct{}) bool {
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	if ctx.Err() != nil {
		<-sem
		return false
	}
	return true
}

func (j *Job) process(ctx context.Context, logCtx *slog.Logger, src PageSource, index models.PageIndex, result *models.DocumentResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("page %d: panic during extraction: %v", index, r)
			logCtx.Error("Page extraction panicked, page excluded.", "page", int(index), "error", err)
			_ = result.Fail(index, err)
		}
	}()

	page, err := j.extractor.Extract(ctx, src, index)
	if err != nil {
		logCtx.Error("Page extraction failed, page excluded.", "page", int(index), "error", err)
		_ = result.Fail(index, err)
		return
	}

	if err := result.Add(page); err != nil {
		logCtx.Error("Failed to record page result.", "page", int(index), "error", err)
	}
}

// Wait drains events, calling onProgress for each progress event, and returns
// the document result or the terminal error.
func Wait(events <-chan models.Event, onProgress func(percent int)) (*models.DocumentResult, error) {
	var result *models.DocumentResult
	var err error

	for e := range events {
		switch e.Kind {
		case models.EventProgress:
			if onProgress != nil {
				onProgress(e.Percent)
			}
		case models.EventDone:
			result = e.Result
		case models.EventError:
			err = errors.New(e.Message)
		}
	}

	if result == nil && err == nil {
		err = errors.New("event stream closed without a terminal event")
	}
	return result, err
}
