// Package uploadstore implements the optional upload-mirroring backend from
// SPEC_FULL.md's DOMAIN STACK: when --upload-gcs-bucket is set, every file
// the core accepts through the file-upload flow (internal/window) is also
// copied to a Google Cloud Storage bucket, so a host program running on a
// separate machine from the plugin can retrieve it. Local disk (already
// written by internal/window/upload.go) remains the path the core itself
// depends on; a Store is a pure side channel layered on top of it.
package uploadstore

import (
	"context"
)

// Store mirrors a completed upload, already stored at a local path, to a
// backend and returns a URL the host can use to retrieve it. Mirror is
// best-effort: a failing Store must not block or fail the upload the core
// has already accepted.
type Store interface {
	Mirror(ctx context.Context, objectName, path, contentType string) (url string, err error)
}

// NoopStore is the Store used when no mirroring backend is configured (the
// default, local-disk-only configuration SPEC_FULL.md calls out as the one
// the core's functionality never depends on).
type NoopStore struct{}

// Mirror implements Store by doing nothing.
func (NoopStore) Mirror(context.Context, string, string, string) (string, error) {
	return "", nil
}
