// Package window implements component C5: the per-session state machine
// that owns a single legacy-browser "window" — its page/image/event
// indices, cursor and quality sub-states, and the download/upload/clipboard
// flows layered on top of the plain image-and-form protocol. Grounded on
// window.hpp/window.cpp and the path/event grammar in spec.md §4.5.
package window

import (
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/frame"
	"github.com/ttalvitie/retrojsvice/internal/htmlpages"
	"github.com/ttalvitie/retrojsvice/internal/httpserver"
	"github.com/ttalvitie/retrojsvice/internal/imagecompressor"
	"github.com/ttalvitie/retrojsvice/internal/secrets"
	"github.com/ttalvitie/retrojsvice/internal/taskqueue"
)

const (
	defaultWidth      = 800
	defaultHeight     = 600
	minDimension      = 64
	maxDimension      = 4096
	inactivityTimeout = 60 * time.Second
	downloadTTL       = 30 * time.Second
)

// EventHandler receives everything a Window needs from its host: frame
// fetches and input events, keyed by window handle so one handler can serve
// every Window the host owns. Mirrors WindowEventHandler in window.hpp.
type EventHandler interface {
	OnWindowClose(handle uint64)
	OnWindowFetchImage(handle uint64) (data []byte, width, height, pitch int)
	OnWindowResize(handle uint64, width, height int)
	OnWindowMouseDown(handle uint64, x, y, button int)
	OnWindowMouseUp(handle uint64, x, y, button int)
	OnWindowMouseMove(handle uint64, x, y int)
	OnWindowMouseDoubleClick(handle uint64, x, y, button int)
	OnWindowMouseWheel(handle uint64, x, y, delta int)
	OnWindowMouseLeave(handle uint64, x, y int)
	OnWindowKeyDown(handle uint64, key int)
	OnWindowKeyUp(handle uint64, key int)
	OnWindowLoseFocus(handle uint64)
	// OnWindowNavigate reports a confirmed back (direction < 0) or forward
	// (direction > 0) navigation.
	OnWindowNavigate(handle uint64, direction int)
	OnWindowUploadFile(handle uint64, name, path string)
	OnWindowCancelFileUpload(handle uint64)
}

type downloadEntry struct {
	name string
	path string
	tag  *taskqueue.DelayedTask
}

// Window is the per-session state machine described in spec.md §3/§4.5.
// All exported methods must be called from the queue's API thread.
type Window struct {
	handle       uint64
	eventHandler EventHandler
	queue        *taskqueue.Queue

	programName string
	allowPNG    bool

	csrfToken   string
	pathPrefix  string
	snakeOilKey []byte
	keyStreamPos int

	compressor *imagecompressor.Compressor

	width, height int

	mouseButtonsDown map[int]bool
	keysDown         map[int]bool

	prePrevVisited bool
	preNextVisited bool

	curMainIdx  uint64
	curImgIdx   uint64
	curEventIdx uint64

	downloads      map[uint64]*downloadEntry
	curDownloadIdx uint64

	inactivityTag *taskqueue.DelayedTask

	iframeQueue []func(*httpserver.Request)

	inFileUploadMode bool
	pendingUpload    *pendingUpload

	clipboardText      string
	clipboardCSRFToken string
	clipboardTag       *taskqueue.DelayedTask

	closed bool
}

// New constructs an open Window for handle, which must be nonzero. quality
// is the initial compression quality (10..100 JPEG or 101 PNG, subject to
// allowPNG).
func New(
	handle uint64,
	eventHandler EventHandler,
	queue *taskqueue.Queue,
	secretGen *secrets.Generator,
	programName string,
	allowPNG bool,
	quality int,
	uploadDir string,
) *Window {
	corelog.Require(handle != 0, "window: handle must be nonzero")

	if !allowPNG && quality == imagecompressor.MaxQuality {
		quality = imagecompressor.MaxQuality - 1
	}

	w := &Window{
		handle:           handle,
		eventHandler:     eventHandler,
		queue:            queue,
		programName:      programName,
		allowPNG:         allowPNG,
		csrfToken:        secretGen.CSRFToken(),
		snakeOilKey:      secretGen.SnakeOilCipherKey(),
		width:            defaultWidth,
		height:           defaultHeight,
		mouseButtonsDown: make(map[int]bool),
		keysDown:         make(map[int]bool),
		downloads:        make(map[uint64]*downloadEntry),
	}
	w.pathPrefix = "/" + strconv.FormatUint(handle, 10) + "/" + w.csrfToken + "/"

	w.compressor = imagecompressor.New(
		queue,
		frame.SourceFunc(w.fetchFrame),
		frame.OverlayFunc(w.renderGUI),
		quality,
	)

	w.updateInactivityTimeout(false)

	if uploadDir != "" {
		w.setUploadDir(uploadDir)
	}

	return w
}

// NewPopup constructs a popup Window that shares its parent's program name,
// PNG support, quality and upload directory, but gets its own CSRF token and
// snake-oil key, matching Window::createPopup.
func (w *Window) NewPopup(
	handle uint64,
	eventHandler EventHandler,
	secretGen *secrets.Generator,
) *Window {
	dir := ""
	if w.pendingUpload != nil {
		dir = w.pendingUpload.dir
	}
	return New(handle, eventHandler, w.queue, secretGen, w.programName, w.allowPNG, w.compressor.Quality(), dir)
}

// Handle returns the window's opaque session handle.
func (w *Window) Handle() uint64 { return w.handle }

// PathPrefix returns the "/<handle>/<csrf>/" prefix the client must address
// every request to this Window with.
func (w *Window) PathPrefix() string { return w.pathPrefix }

// Closed reports whether the Window has already been torn down.
func (w *Window) Closed() bool { return w.closed }

// Close tears the Window down without notifying the host, matching the
// public Close() contract in window.hpp: used when the host (or the
// WindowManager on the host's behalf) initiated the close.
func (w *Window) Close() {
	if w.closed {
		return
	}
	w.teardown()
}

// selfClose tears the Window down and notifies the host exactly once,
// matching the private selfClose_ path taken on inactivity timeout or the
// client's own "close" button.
func (w *Window) selfClose() {
	if w.closed {
		return
	}
	w.teardown()
	w.eventHandler.OnWindowClose(w.handle)
}

func (w *Window) teardown() {
	w.closed = true

	if w.inactivityTag != nil {
		w.inactivityTag.Cancel()
		w.inactivityTag = nil
	}
	if w.clipboardTag != nil {
		w.clipboardTag.Cancel()
		w.clipboardTag = nil
	}
	for _, d := range w.downloads {
		if d.tag != nil {
			d.tag.Cancel()
		}
	}
	w.downloads = nil

	w.compressor.StopFetching()
}

func (w *Window) fetchFrame() (data []byte, width, height, pitch int) {
	return w.eventHandler.OnWindowFetchImage(w.handle)
}

func (w *Window) renderGUI(data []byte, width, height int) {
	if w.inFileUploadMode {
		renderUploadModeGUI(data, width, height)
	}
}

func (w *Window) updateInactivityTimeout(shorten bool) {
	if w.inactivityTag != nil {
		w.inactivityTag.Cancel()
	}
	timeout := inactivityTimeout
	if shorten {
		timeout = 5 * time.Second
	}
	w.inactivityTag = w.queue.PostDelayed(timeout, func() {
		w.inactivityTag = nil
		w.selfClose()
	})
}

// HandleRequest dispatches req, whose Path has already had the "/<handle>/"
// prefix stripped by the WindowManager, leaving "<csrf>/<rest...>". Any
// mismatch in the CSRF segment (including entirely missing segments) is a
// 400, matching "any path outside the prefix" in spec.md §4.5.
func (w *Window) HandleRequest(req *httpserver.Request, afterHandle string) {
	if w.closed {
		corelog.Panic("window: HandleRequest called on a closed window")
	}

	csrf, rest, ok := strings.Cut(afterHandle, "/")
	if !ok {
		csrf, rest = afterHandle, ""
	}
	if !secrets.Equal(csrf, w.csrfToken) {
		req.SendTextError(400, "bad csrf token")
		return
	}

	w.updateInactivityTimeout(false)

	switch {
	case rest == "":
		w.handleMainPageRequest(req)
	case rest == "image":
		w.handleImageRequest(req)
	case strings.HasPrefix(rest, "iframe/"):
		w.handleIframeRequest(req, strings.TrimPrefix(rest, "iframe/"))
	case strings.HasPrefix(rest, "close/"):
		w.handleCloseRequest(req, strings.TrimPrefix(rest, "close/"))
	case rest == "prev/":
		w.handleNavRequest(req, false)
	case rest == "next/":
		w.handleNavRequest(req, true)
	case rest == "clipboard":
		w.handleClipboardRequest(req)
	case strings.HasPrefix(rest, "upload/"):
		w.handleUploadRequest(req, strings.TrimPrefix(rest, "upload/"))
	case strings.HasPrefix(rest, "download/"):
		w.handleDownloadRequest(req, strings.TrimPrefix(rest, "download/"))
	default:
		req.SendTextError(400, "unknown path")
	}
}

func (w *Window) handleMainPageRequest(req *httpserver.Request) {
	w.handleQualityQuery(req.Query("q"))

	w.curMainIdx++
	w.curEventIdx = 0
	w.prePrevVisited = false
	w.preNextVisited = false
	w.releaseHeldInput()

	data := htmlpages.MainData{
		PathPrefix:           w.pathPrefix,
		MainIdx:              w.curMainIdx,
		CSRFToken:            w.csrfToken,
		SnakeOilKey:          hex.EncodeToString(w.snakeOilKey),
		Width:                w.width,
		Height:               w.height,
		NeedsClipboardButton: w.NeedsClipboardButton(),
		QualityOptions:       qualityOptions(w.allowPNG),
		CurrentQualityIdx:    qualityToIdx(w.compressor.Quality(), w.allowPNG),
	}
	req.SendHTML(200, htmlpages.MainPage(data))
}

// NotifyViewChanged tells the Window's compressor that a fresh frame is
// available, matching WindowManager::notifyViewChanged /
// Window::notifyViewChanged.
func (w *Window) NotifyViewChanged() {
	w.compressor.NotifyUpdate()
}

// SetCursor updates the cursor signal embedded in subsequent served images,
// matching Window::setCursor.
func (w *Window) SetCursor(cursorSignal int) {
	w.compressor.SetCursorSignal(cursorSignal)
}

// NeedsClipboardButton reports whether the client-facing page should show a
// clipboard button; always true, matching
// WindowManager::needsClipboardButtonQuery.
func (w *Window) NeedsClipboardButton() bool {
	return true
}

func (w *Window) handleCloseRequest(req *httpserver.Request, mainIdxStr string) {
	mainIdx, err := strconv.ParseUint(mainIdxStr, 10, 64)
	if err != nil || mainIdx != w.curMainIdx {
		req.SendTextError(400, "stale close request")
		return
	}
	req.SendTextError(200, "closing")
	w.selfClose()
}
