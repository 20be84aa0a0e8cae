package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/figureflow/internal/gcp"
)

// Sink stores named export artifacts. Names use forward slashes.
type Sink interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
}

// DirSink writes artifacts below a local directory.
type DirSink struct {
	Root string
}

func (s DirSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	dest := filepath.Join(s.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}

func (s DirSink) String() string {
	return s.Root
}

// BucketSink writes artifacts as objects under Prefix. Existing objects are
// left untouched. Failed writes are retried with exponential backoff.
type BucketSink struct {
	Bucket *storage.BucketHandle
	Name   string
	Prefix string
}

const (
	bucketMaxRetries = 4
	bucketBackoff    = 1 * time.Second
)

func (s BucketSink) Put(ctx context.Context, name, contentType string, data []byte) error {
	object := path.Join(s.Prefix, name)
	backoff := bucketBackoff
	var lastErr error

	for i := 0; i < bucketMaxRetries; i++ {
		writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
		err := gcp.SaveToGCSAtomically(writeCtx, s.Bucket, object, contentType, data)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn(
			"Upload failed, will retry.",
			"gcsObject", object,
			"attempt", i+1,
			"maxRetries", bucketMaxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("upload for %s failed after all retries: %w", object, lastErr)
}

func (s BucketSink) String() string {
	return fmt.Sprintf("gs://%s/%s", s.Name, s.Prefix)
}
