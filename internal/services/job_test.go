package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/figureflow/internal/models"
	"github.com/Lllllllleong/figureflow/internal/segment"
	"github.com/Lllllllleong/figureflow/internal/services"

	"github.com/stretchr/testify/require"
)

func requireWellFormed(t *testing.T, events []models.Event) []int {
	t.Helper()

	require.NotEmpty(t, events)
	var percents []int
	for i, e := range events {
		if i < len(events)-1 {
			require.Equal(t, models.EventProgress, e.Kind, "only the last event may be terminal")
			percents = append(percents, e.Percent)
		} else {
			require.True(t, e.Terminal(), "stream must end with a terminal event")
		}
	}

	for i := 1; i < len(percents); i++ {
		require.GreaterOrEqual(t, percents[i], percents[i-1], "progress must not go backwards")
	}
	return percents
}

func TestJobScenario(t *testing.T) {
	src, rec := scenario()
	job := services.NewJob(services.NewPageExtractor(rec, segment.New()), 2)

	events := collect(job.Run(context.Background(), func() (services.PageSource, error) { return src, nil }))
	percents := requireWellFormed(t, events)

	require.Len(t, percents, 3, "one progress event per page, failed pages included")
	require.Equal(t, 100, percents[len(percents)-1])

	last := events[len(events)-1]
	require.Equal(t, models.EventDone, last.Kind)
	result := last.Result
	require.NotNil(t, result)

	require.Equal(t, 3, result.TotalPages)
	require.Equal(t, []models.PageIndex{0, 1}, result.Indices())
	require.Equal(t, []models.PageIndex{2}, result.FailedIndices())
	require.ErrorContains(t, result.Failed[2], "render failed")

	require.Equal(t, "Hello World", result.Pages[0].Text)
	require.Len(t, result.Pages[1].Figures, 1)
	require.Equal(t, []string{"Fig 2"}, result.Pages[1].Captions)

	require.True(t, src.closed.Load(), "source is closed after the run")
}

func TestJobOpenFailure(t *testing.T) {
	job := services.NewJob(services.NewPageExtractor(nil, nil), 0)

	events := collect(job.Run(context.Background(), func() (services.PageSource, error) {
		return nil, errors.New("not a pdf")
	}))

	require.Len(t, events, 1)
	require.Equal(t, models.EventError, events[0].Kind)
	require.Contains(t, events[0].Message, "not a pdf")
}

func TestJobEmptyDocument(t *testing.T) {
	job := services.NewJob(services.NewPageExtractor(nil, nil), 4)

	events := collect(job.Run(context.Background(), func() (services.PageSource, error) {
		return &fakeSource{}, nil
	}))

	percents := requireWellFormed(t, events)
	require.Equal(t, []int{100}, percents)
	last := events[len(events)-1]
	require.Equal(t, models.EventDone, last.Kind)
	require.Empty(t, last.Result.Pages)
	require.Empty(t, last.Result.Failed)
}

func TestJobPanickingPageIsExcluded(t *testing.T) {
	src := &fakeSource{pages: []fakePage{
		{text: "fine", raster: blankPage(100, 100)},
		{panics: true},
	}}
	job := services.NewJob(services.NewPageExtractor(nil, nil), 2)

	result, err := services.Wait(job.Run(context.Background(), func() (services.PageSource, error) { return src, nil }), nil)
	require.NoError(t, err)
	require.Equal(t, []models.PageIndex{0}, result.Indices())
	require.Equal(t, []models.PageIndex{1}, result.FailedIndices())
	require.ErrorContains(t, result.Failed[1], "corrupt page")
}

func TestJobManyPagesAllReported(t *testing.T) {
	pages := make([]fakePage, 25)
	for i := range pages {
		pages[i] = fakePage{text: "page", raster: blankPage(50, 50)}
	}
	src := &fakeSource{pages: pages}
	job := services.NewJob(services.NewPageExtractor(nil, nil), 3)

	var seen []int
	result, err := services.Wait(job.Run(context.Background(), func() (services.PageSource, error) { return src, nil }), func(p int) {
		seen = append(seen, p)
	})
	require.NoError(t, err)
	require.Len(t, result.Pages, 25)
	require.Len(t, seen, 25)
	require.Equal(t, 4, seen[0])
	require.Equal(t, 100, seen[24])
}

func TestJobCancellation(t *testing.T) {
	pages := make([]fakePage, 20)
	for i := range pages {
		pages[i] = fakePage{text: "page", raster: blankPage(50, 50)}
	}
	src := &fakeSource{
		pages:   pages,
		gate:    make(chan struct{}),
		started: make(chan models.PageIndex, len(pages)),
	}
	job := services.NewJob(services.NewPageExtractor(nil, nil), 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := job.Run(ctx, func() (services.PageSource, error) { return src, nil })

	for range 2 {
		select {
		case <-src.started:
		case <-time.After(5 * time.Second):
			t.Fatal("workers did not start")
		}
	}

	// Let the dispatcher park on the full pool.
	time.Sleep(20 * time.Millisecond)
	cancel()
	close(src.gate)

	all := collect(events)
	percents := requireWellFormed(t, all)

	last := all[len(all)-1]
	require.Equal(t, models.EventError, last.Kind)
	require.Contains(t, last.Message, context.Canceled.Error())

	require.Len(t, percents, 2, "in-flight pages still report progress")
	require.EqualValues(t, 2, src.rasterCalls.Load(), "no page is dispatched after cancellation")
	require.True(t, src.closed.Load())
}

func TestWaitWithoutTerminalEvent(t *testing.T) {
	events := make(chan models.Event)
	close(events)

	_, err := services.Wait(events, nil)
	require.Error(t, err)
}

func TestDefaultWorkers(t *testing.T) {
	n := services.DefaultWorkers()
	require.GreaterOrEqual(t, n, 1)
	require.LessOrEqual(t, n, services.MaxWorkers)
}

func TestJobSingleWorkerAlwaysFinishes(t *testing.T) {
	pages := make([]fakePage, 40)
	for i := range pages {
		pages[i] = fakePage{text: "page", raster: blankPage(8, 8)}
	}
	extractor := services.NewPageExtractor(nil, nil)

	for run := range 300 {
		src := &fakeSource{pages: pages}
		job := services.NewJob(extractor, 1)
		events := job.Run(context.Background(), func() (services.PageSource, error) { return src, nil })

		done := make(chan *models.DocumentResult, 1)
		go func() {
			result, _ := services.Wait(events, nil)
			done <- result
		}()

		select {
		case result := <-done:
			require.NotNil(t, result, "run %d", run)
			require.Len(t, result.Pages, len(pages), "run %d", run)
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d: job stalled after %d of %d pages", run, src.rasterCalls.Load(), len(pages))
		}
	}
}
