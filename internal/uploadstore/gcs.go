package uploadstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
)

const (
	signedURLTTL  = 1 * time.Hour
	maxMirrorTry  = 3
	mirrorBackoff = 500 * time.Millisecond
)

// GCSStore mirrors uploads to a Google Cloud Storage bucket. Unlike a
// one-shot capture artefact upload, a mirrored file already sits on local
// disk by the time Mirror runs (internal/window/upload.go wrote it there
// first), so Mirror takes a path rather than a generic io.Reader and retries
// the write a few times before giving up: a slow or flaky bucket must never
// be allowed to surface as an upload failure to the legacy client, since the
// local copy the core depends on is already safely stored.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore creates a GCSStore for the given bucket. opts are passed
// through to the underlying GCS client, allowing credential injection (used
// by internal/vicecontext when --upload-gcs-bucket is set).
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("uploadstore: failed to create GCS client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Mirror copies the file at path to objectName in the bucket and returns a
// time-limited signed URL. It retries the upload up to maxMirrorTry times on
// failure, since it runs well after the file has already been accepted and
// stored locally.
func (s *GCSStore) Mirror(ctx context.Context, objectName, path, contentType string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("uploadstore: cannot mirror %q: %w", path, err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxMirrorTry; attempt++ {
		if err := s.writeOnce(ctx, objectName, path, contentType); err != nil {
			lastErr = err
			corelog.Warning("uploadstore: mirror attempt ", attempt, " of ", objectName, " (", info.Size(), " bytes) failed: ", err)
			if attempt < maxMirrorTry {
				time.Sleep(mirrorBackoff * time.Duration(attempt))
			}
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return "", fmt.Errorf("uploadstore: giving up mirroring %q after %d attempts: %w", objectName, maxMirrorTry, lastErr)
	}

	expiresAt := time.Now().Add(signedURLTTL)
	signedURL, err := s.client.Bucket(s.bucket).SignedURL(objectName, &storage.SignedURLOptions{
		Method:  "GET",
		Expires: expiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("uploadstore: failed to sign URL for %q: %w", objectName, err)
	}

	corelog.Info("uploadstore: mirrored ", path, " to gs://", s.bucket, "/", objectName)
	return signedURL, nil
}

func (s *GCSStore) writeOnce(ctx context.Context, objectName, path, contentType string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer file.Close()

	obj := s.client.Bucket(s.bucket).Object(objectName)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload write failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload close failed: %w", err)
	}
	return nil
}

// Close releases the underlying GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
