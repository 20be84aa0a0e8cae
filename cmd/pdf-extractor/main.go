package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/figureflow/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	extractorInstance *services.ExtractorFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("ExtractAndExport", extractAndExport)
}

// main is required by the Go Functions Framework.
func main() {}

// extractAndExport is the Cloud Function entry point for new PDF uploads.
func extractAndExport(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		extractorInstance, initErr = services.NewExtractorFunction(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Errors are logged with context inside Process; returning one marks the
	// invocation as failed.
	return extractorInstance.Process(ctx, gcsEvent)
}
