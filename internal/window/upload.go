package window

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/htmlpages"
	"github.com/ttalvitie/retrojsvice/internal/httpserver"
)

const maxUploadMemory = 16 << 20 // 16 MiB held in memory before spilling to disk

type pendingUpload struct {
	dir string
}

// UploadDir, when set by the owning WindowManager, is the plugin-managed
// temp directory new uploads are written into (SPEC_FULL.md's
// internal/uploadstore component). A nil or empty value falls back to
// os.TempDir.
func (w *Window) setUploadDir(dir string) {
	w.pendingUpload = &pendingUpload{dir: dir}
}

// StartFileUpload enters file-upload mode: the GUI overlay dims the frame
// and the Window queues an iframe showing the upload form, matching
// Window::startFileUpload. Returns false if a upload is already in
// progress.
func (w *Window) StartFileUpload() bool {
	if w.closed || w.inFileUploadMode {
		return false
	}
	w.inFileUploadMode = true
	w.compressor.NotifyUpdate()
	mainIdx := w.curMainIdx
	w.addIframe(func(req *httpserver.Request) {
		req.SendHTML(200, htmlpages.UploadModal(w.pathPrefix, mainIdx))
	})
	return true
}

// CancelFileUpload leaves file-upload mode without requiring a completed
// upload, matching Window::cancelFileUpload.
func (w *Window) CancelFileUpload() {
	if !w.inFileUploadMode {
		return
	}
	w.inFileUploadMode = false
	w.compressor.NotifyUpdate()
}

func (w *Window) handleUploadRequest(req *httpserver.Request, mainIdxStr string) {
	mainIdx, err := strconv.ParseUint(mainIdxStr, 10, 64)
	if err != nil || mainIdx != w.curMainIdx || !w.inFileUploadMode {
		req.SendTextError(400, "no upload in progress")
		return
	}

	file, filename, err := req.MultipartFile("file", maxUploadMemory)
	if err != nil {
		req.SendTextError(400, "malformed upload")
		return
	}
	defer file.Close()

	dir := ""
	if w.pendingUpload != nil {
		dir = w.pendingUpload.dir
	}
	if dir == "" {
		dir = os.TempDir()
	}

	sanitized := sanitizeUploadFilename(filename)
	destName := uuid.NewString() + "_" + sanitized
	destPath := filepath.Join(dir, destName)

	dest, err := os.Create(destPath)
	if err != nil {
		corelog.Warning("window: failed to create upload destination ", destPath, ": ", err)
		req.SendTextError(500, "could not store uploaded file")
		return
	}
	if _, err := io.Copy(dest, file); err != nil {
		dest.Close()
		os.Remove(destPath)
		req.SendTextError(500, "could not store uploaded file")
		return
	}
	dest.Close()

	w.inFileUploadMode = false
	w.compressor.NotifyUpdate()

	req.SendTextError(200, "upload complete")

	w.eventHandler.OnWindowUploadFile(w.handle, sanitized, destPath)
}

// sanitizeUploadFilename strips directory separators and NUL bytes, clamps
// length, and guarantees a nonempty extension, matching the upload sanitize
// rules in spec.md §4.5. Sanitize is idempotent: re-sanitizing an already
// sanitized name yields the same name.
func sanitizeUploadFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return -1
		}
		return r
	}, name)

	name = strings.TrimLeft(name, ".")
	if name == "" {
		name = "file"
	}

	const maxLen = 200
	if len(name) > maxLen {
		name = name[:maxLen]
	}

	if !strings.Contains(name, ".") {
		name += ".bin"
	}

	return name
}
