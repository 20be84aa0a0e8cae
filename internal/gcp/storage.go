package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// An existing object is not a failure: re-running an export is idempotent.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, content []byte) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to copy content to GCS object", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			slog.Info("Object already exists, skipping.", "gcsObject", objectName)
			return nil
		}
		slog.Error("Failed to close GCS writer", "gcsObject", objectName, "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// DownloadObject streams gs://bucket/object into a local file.
func DownloadObject(ctx context.Context, client *storage.Client, bucket, object, destPath string) error {
	gcsReader, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", bucket, object, err)
	}
	defer gcsReader.Close()

	localFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file at %s: %w", destPath, err)
	}
	defer localFile.Close()

	if _, err := io.Copy(localFile, gcsReader); err != nil {
		return fmt.Errorf("failed to copy GCS object to local file: %w", err)
	}
	return nil
}

// ParseGCSUri splits "gs://bucket/path/to/object" into bucket and object.
func ParseGCSUri(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("gs uri must name a bucket and an object: %q", uri)
	}
	return bucket, object, nil
}
