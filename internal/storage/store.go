// Package storage persists uploads and generated documents. The local
// filesystem is the working copy, an optional S3-compatible bucket keeps
// the permanent archive.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayumi-support/kiroku-engine/internal/config"
)

// ArchiveStore abstracts the archival backend for audio and documents.
type ArchiveStore interface {
	// Save stores a file. key format: {area}/{YYYY-MM-DD}/{filename}
	// where area is "audio", "transcripts", or "documents".
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// Open returns a reader for an archived file.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// URL returns a presigned download URL, or "" for local backends.
	URL(ctx context.Context, key string) (string, error)

	// Exists checks whether a key is present in the backend.
	Exists(ctx context.Context, key string) bool

	// Type returns "local" or "s3".
	Type() string
}

// BackgroundService is a stoppable background goroutine.
type BackgroundService interface {
	Start()
	Stop()
}

// New creates the archive store from config. With a bucket configured it
// verifies access before returning so misconfiguration fails at startup.
func New(cfg config.S3Config, localDir string, log zerolog.Logger) (ArchiveStore, error) {
	if !cfg.Enabled() {
		return NewLocalStore(localDir), nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("s3 init failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("s3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("s3 connection verified")
	return s3store, nil
}

// DateKey builds an archive key under the given area for today.
func DateKey(area, filename string) string {
	return area + "/" + time.Now().UTC().Format("2006-01-02") + "/" + filename
}
