package window

import (
	"io"
	"os"
	"strconv"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/htmlpages"
	"github.com/ttalvitie/retrojsvice/internal/httpserver"
)

// PutFileDownload registers a completed download, queues an iframe body
// pointing at its URL, and schedules its removal after downloadTTL, mirroring
// Window::putFileDownload / FileDownload in download.hpp. cleanup is invoked
// once the TTL expires or the Window closes, whichever comes first.
func (w *Window) PutFileDownload(name, path string, cleanup func()) {
	if w.closed {
		return
	}

	idx := w.curDownloadIdx
	w.curDownloadIdx++

	entry := &downloadEntry{name: name, path: path}
	w.downloads[idx] = entry
	entry.tag = w.queue.PostDelayed(downloadTTL, func() {
		delete(w.downloads, idx)
		if cleanup != nil {
			cleanup()
		}
	})

	w.addIframe(func(req *httpserver.Request) {
		req.SendHTML(200, htmlpages.DownloadIframe(w.pathPrefix, idx, name))
	})
}

// handleDownloadRequest serves a previously registered download's bytes.
// Unlike every other response the Window produces, this one carries no
// no-cache headers — intentionally, to work around an old IE download bug
// documented in FileDownload::serve.
func (w *Window) handleDownloadRequest(req *httpserver.Request, idxStr string) {
	idx, err := strconv.ParseUint(idxStr, 10, 64)
	if err != nil {
		req.SendTextError(400, "invalid download index")
		return
	}
	entry, ok := w.downloads[idx]
	if !ok {
		req.SendTextError(400, "expired or unknown download")
		return
	}

	f, err := os.Open(entry.path)
	if err != nil {
		corelog.Warning("window: failed to open download file ", entry.path, ": ", err)
		req.SendTextError(500, "could not read download file")
		return
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		req.SendTextError(500, "could not stat download file")
		return
	}

	headers := map[string]string{"Content-Disposition": htmlpages.DownloadFileName(entry.name)}
	req.SendResponseHeaders(200, "application/octet-stream", info.Size(), headers, func(w io.Writer) {
		defer f.Close()
		_, _ = io.Copy(w, f)
	})
}
