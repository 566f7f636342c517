package vicecontext

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/devchannel"
	"github.com/ttalvitie/retrojsvice/internal/downloadlog"
	"github.com/ttalvitie/retrojsvice/internal/uploadstore"
	"github.com/ttalvitie/retrojsvice/internal/windowmanager"
)

// eventBridge decorates a host-supplied windowmanager.EventHandler with the
// optional SPEC_FULL.md side effects (GCS upload mirroring, the SQLite audit
// log, the debug websocket channel), so the host program itself never needs
// to know whether any of them are enabled. Every call is forwarded to inner
// unchanged; the bridge only adds work around OnCreateWindowRequest,
// OnCloseWindow and OnUploadFile, the three points where a transfer or a
// window's lifecycle becomes observable.
type eventBridge struct {
	inner windowmanager.EventHandler

	auditLog    *downloadlog.Log
	devChannel  *devchannel.Channel
	uploadStore uploadstore.Store
}

func newEventBridge(inner windowmanager.EventHandler, auditLog *downloadlog.Log, devChannel *devchannel.Channel, uploadStore uploadstore.Store) *eventBridge {
	return &eventBridge{inner: inner, auditLog: auditLog, devChannel: devChannel, uploadStore: uploadStore}
}

func (b *eventBridge) OnCreateWindowRequest() windowmanager.CreateResult {
	result := b.inner.OnCreateWindowRequest()
	if b.devChannel != nil {
		if result.Denied != "" {
			b.devChannel.Publish(devchannel.Event{Kind: "window_denied", Detail: result.Denied})
		} else {
			b.devChannel.Publish(devchannel.Event{Kind: "window_open", Window: result.Handle})
		}
	}
	return result
}

func (b *eventBridge) OnCloseWindow(handle uint64) {
	b.inner.OnCloseWindow(handle)
	if b.devChannel != nil {
		b.devChannel.Publish(devchannel.Event{Kind: "window_close", Window: handle})
	}
}

func (b *eventBridge) OnFetchImage(handle uint64) (data []byte, width, height, pitch int) {
	return b.inner.OnFetchImage(handle)
}

func (b *eventBridge) OnResizeWindow(handle uint64, width, height int) {
	b.inner.OnResizeWindow(handle, width, height)
}

func (b *eventBridge) OnMouseDown(handle uint64, x, y, button int) {
	b.inner.OnMouseDown(handle, x, y, button)
}

func (b *eventBridge) OnMouseUp(handle uint64, x, y, button int) {
	b.inner.OnMouseUp(handle, x, y, button)
}

func (b *eventBridge) OnMouseMove(handle uint64, x, y int) {
	b.inner.OnMouseMove(handle, x, y)
}

func (b *eventBridge) OnMouseDoubleClick(handle uint64, x, y, button int) {
	b.inner.OnMouseDoubleClick(handle, x, y, button)
}

func (b *eventBridge) OnMouseWheel(handle uint64, x, y, delta int) {
	b.inner.OnMouseWheel(handle, x, y, delta)
}

func (b *eventBridge) OnMouseLeave(handle uint64, x, y int) {
	b.inner.OnMouseLeave(handle, x, y)
}

func (b *eventBridge) OnKeyDown(handle uint64, key int) {
	b.inner.OnKeyDown(handle, key)
}

func (b *eventBridge) OnKeyUp(handle uint64, key int) {
	b.inner.OnKeyUp(handle, key)
}

func (b *eventBridge) OnLoseFocus(handle uint64) {
	b.inner.OnLoseFocus(handle)
}

func (b *eventBridge) OnNavigate(handle uint64, direction int) {
	b.inner.OnNavigate(handle, direction)
}

// OnUploadFile forwards to inner, then — if either the audit log or an
// upload-mirroring Store is configured — records the transfer and copies it
// off-box. Neither operation may block or fail the upload the core has
// already accepted, so both run on a detached goroutine rather than inline;
// this touches no Window/Manager state (only disk, SQLite and network), so
// unlike imagecompressor.Compressor.pump's result-delivery goroutines it has
// no need to post itself back onto the task queue's API thread.
func (b *eventBridge) OnUploadFile(handle uint64, name, path string) {
	b.inner.OnUploadFile(handle, name, path)

	if b.auditLog == nil && b.devChannel == nil {
		if _, ok := b.uploadStore.(uploadstore.NoopStore); ok {
			return
		}
	}

	go b.recordAndMirrorUpload(handle, name, path)
}

func (b *eventBridge) recordAndMirrorUpload(handle uint64, name, path string) {
	info, err := os.Stat(path)
	var size int64
	if err != nil {
		corelog.Warning("vicecontext: failed to stat uploaded file ", path, ": ", err)
	} else {
		size = info.Size()
	}

	if b.auditLog != nil {
		entry := downloadlog.Entry{
			WindowHandle: handle,
			Direction:    downloadlog.Upload,
			Filename:     name,
			SizeBytes:    size,
			OccurredAt:   time.Now(),
		}
		if err := b.auditLog.Record(entry); err != nil {
			corelog.Warning("vicecontext: failed to record upload audit entry: ", err)
		}
	}

	if _, ok := b.uploadStore.(uploadstore.NoopStore); !ok {
		url, err := b.uploadStore.Mirror(context.Background(), mirrorObjectName(handle, name), path, contentTypeFor(name))
		if err != nil {
			corelog.Warning("vicecontext: failed to mirror uploaded file ", path, ": ", err)
		} else if url != "" {
			corelog.Info("vicecontext: mirrored upload ", name, " to ", url)
		}
	}

	if b.devChannel != nil {
		b.devChannel.Publish(devchannel.Event{Kind: "upload", Window: handle, Detail: name})
	}
}

func (b *eventBridge) OnCancelFileUpload(handle uint64) {
	b.inner.OnCancelFileUpload(handle)
}

// mirrorObjectName namespaces mirrored objects by window handle so uploads
// of the same filename from different windows cannot collide in the bucket.
func mirrorObjectName(handle uint64, name string) string {
	return filepath.Join(strconv.FormatUint(handle, 10), name)
}

// contentTypeFor guesses a MIME type from name's extension, falling back to
// a generic binary type when unrecognized.
func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
