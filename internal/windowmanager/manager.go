// Package windowmanager implements component C6: it owns the handle→Window
// map, routes incoming HTTP requests to the right Window (or to the
// new-window flow), and mediates host-initiated popups and closes. Grounded
// on window_manager.hpp/window_manager.cpp.
package windowmanager

import (
	"strconv"
	"strings"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/htmlpages"
	"github.com/ttalvitie/retrojsvice/internal/httpserver"
	"github.com/ttalvitie/retrojsvice/internal/secrets"
	"github.com/ttalvitie/retrojsvice/internal/taskqueue"
	"github.com/ttalvitie/retrojsvice/internal/window"
)

// CreateResult is the outcome of a create-window request: either a nonzero
// handle chosen by the host, or a denial reason. Mirrors the
// variant<uint64_t, string> return of
// WindowManagerEventHandler::onWindowManagerCreateWindowRequest.
type CreateResult struct {
	Handle uint64
	Denied string
}

// EventHandler is everything the Manager needs from the host program,
// mirroring WindowManagerEventHandler in window_manager.hpp one method at a
// time.
type EventHandler interface {
	OnCreateWindowRequest() CreateResult
	OnCloseWindow(handle uint64)

	OnFetchImage(handle uint64) (data []byte, width, height, pitch int)
	OnResizeWindow(handle uint64, width, height int)

	OnMouseDown(handle uint64, x, y, button int)
	OnMouseUp(handle uint64, x, y, button int)
	OnMouseMove(handle uint64, x, y int)
	OnMouseDoubleClick(handle uint64, x, y, button int)
	OnMouseWheel(handle uint64, x, y, delta int)
	OnMouseLeave(handle uint64, x, y int)

	OnKeyDown(handle uint64, key int)
	OnKeyUp(handle uint64, key int)

	OnLoseFocus(handle uint64)

	OnNavigate(handle uint64, direction int)

	OnUploadFile(handle uint64, name, path string)
	OnCancelFileUpload(handle uint64)
}

// Manager is the C6 component: it implements window.EventHandler so it can
// sit between every Window it owns and the host EventHandler, applying the
// "closed_" checks window_manager.cpp's FORWARD_WINDOW_EVENT macro performs
// before every forward.
type Manager struct {
	eventHandler EventHandler
	secretGen    *secrets.Generator
	queue        *taskqueue.Queue

	programName    string
	defaultQuality int
	uploadDir      string

	closed  bool
	windows map[uint64]*window.Window
}

// New constructs an open Manager. defaultQuality must be in
// [imagecompressor.MinQuality, imagecompressor.MaxQuality]; validated by the
// caller (internal/vicecontext's option parsing), matching
// WindowManager::WindowManager's REQUIRE. uploadDir is the per-Context temp
// directory (see spec.md §6) every Window it creates writes accepted
// uploads into.
func New(eventHandler EventHandler, secretGen *secrets.Generator, queue *taskqueue.Queue, programName string, defaultQuality int, uploadDir string) *Manager {
	corelog.Require(eventHandler != nil, "windowmanager: eventHandler must not be nil")
	return &Manager{
		eventHandler:   eventHandler,
		secretGen:      secretGen,
		queue:          queue,
		programName:    programName,
		defaultQuality: defaultQuality,
		uploadDir:      uploadDir,
		windows:        make(map[uint64]*window.Window),
	}
}

// Close immediately closes every open Window, delivering OnCloseWindow for
// each, and refuses all further HTTP requests. Matches WindowManager::close.
func (m *Manager) Close() {
	corelog.Require(!m.closed, "windowmanager: Close called twice")
	m.closed = true

	for handle, w := range m.windows {
		delete(m.windows, handle)
		corelog.Info("windowmanager: closing window ", handle, " due to plugin shutdown")
		w.Close()
		m.eventHandler.OnCloseWindow(handle)
	}
}

// HandleHTTPRequest routes req, matching WindowManager::handleHTTPRequest:
// "GET /" starts the new-window flow, "/<digits>/..." dispatches to the
// named Window, anything else is a 400.
func (m *Manager) HandleHTTPRequest(req *httpserver.Request) {
	if m.closed {
		req.SendTextError(503, "service is shutting down")
		return
	}

	if req.Method == "GET" && req.Path == "/" {
		m.handleNewWindowRequest(req)
		return
	}

	rest := strings.TrimPrefix(req.Path, "/")
	handleStr, after, ok := strings.Cut(rest, "/")
	if !ok {
		req.SendTextError(400, "invalid request URI or method")
		return
	}
	handle, err := strconv.ParseUint(handleStr, 10, 64)
	if err != nil {
		req.SendTextError(400, "invalid request URI or method")
		return
	}

	w, ok := m.windows[handle]
	if !ok {
		req.SendTextError(400, "invalid window handle")
		return
	}
	w.HandleRequest(req, after)
}

func (m *Manager) handleNewWindowRequest(req *httpserver.Request) {
	corelog.Info("windowmanager: new window requested")

	result := m.eventHandler.OnCreateWindowRequest()
	if result.Handle == 0 {
		corelog.Info("windowmanager: window creation denied by program (reason: ", result.Denied, ")")
		req.SendTextError(503, "could not create window, reason: "+result.Denied)
		return
	}

	corelog.Require(!m.windowExists(result.Handle), "windowmanager: duplicate window handle ", result.Handle)
	corelog.Info("windowmanager: creating window ", result.Handle)

	allowPNG := hasPNGSupport(req.UserAgent)
	w := window.New(result.Handle, m, m.queue, m.secretGen, m.programName, allowPNG, m.defaultQuality, m.uploadDir)
	m.windows[result.Handle] = w

	// The legacy client has no way to learn the fresh CSRF token other than
	// by following a redirect to it; render the same bounce page a 3xx
	// would produce so that browsers with a broken redirect handler still
	// get through, matching html.hpp's NewWindowHTMLData role.
	req.SendHTML(200, htmlpages.NewWindow(htmlpages.NewWindowData{RedirectURL: w.PathPrefix()}))
}

func (m *Manager) windowExists(handle uint64) bool {
	_, ok := m.windows[handle]
	return ok
}

// CreatePopupWindow constructs a child Window sharing parentWindow's program
// name, PNG support and quality, as requested by the host program. Matches
// WindowManager::createPopupWindow.
func (m *Manager) CreatePopupWindow(parentWindow, popupWindow uint64) (ok bool, reason string) {
	if m.closed {
		return false, "plugin is shutting down"
	}

	parent, ok := m.windows[parentWindow]
	corelog.Require(ok, "windowmanager: unknown parent window ", parentWindow)

	corelog.Require(popupWindow != 0, "windowmanager: popup handle must be nonzero")
	corelog.Require(!m.windowExists(popupWindow), "windowmanager: duplicate popup handle ", popupWindow)

	corelog.Info("windowmanager: creating popup window ", popupWindow, " with parent ", parentWindow, " as requested by the program")

	popup := parent.NewPopup(popupWindow, m, m.secretGen)
	m.windows[popupWindow] = popup
	return true, ""
}

// CloseWindow closes an existing Window on the host's behalf, matching
// WindowManager::closeWindow. The handle must currently exist.
func (m *Manager) CloseWindow(handle uint64) {
	w, ok := m.windows[handle]
	corelog.Require(ok, "windowmanager: unknown window ", handle)
	delete(m.windows, handle)
	corelog.Info("windowmanager: closing window ", handle, " as requested by program")
	w.Close()
}

func (m *Manager) get(handle uint64) *window.Window {
	w, ok := m.windows[handle]
	corelog.Require(ok, "windowmanager: unknown window ", handle)
	return w
}

// NotifyViewChanged tells the named Window's compressor a fresh frame is
// ready. Matches WindowManager::notifyViewChanged.
func (m *Manager) NotifyViewChanged(handle uint64) { m.get(handle).NotifyViewChanged() }

// SetCursor updates the named Window's cursor signal. Matches
// WindowManager::setCursor.
func (m *Manager) SetCursor(handle uint64, cursorSignal int) { m.get(handle).SetCursor(cursorSignal) }

// QualitySelectorQuery returns the named Window's quality options and
// current selection. Matches WindowManager::qualitySelectorQuery.
func (m *Manager) QualitySelectorQuery(handle uint64) (options []string, currentIdx int) {
	return m.get(handle).QualitySelectorQuery()
}

// QualityChanged applies a host-requested quality change. Matches
// WindowManager::qualityChanged.
func (m *Manager) QualityChanged(handle uint64, qualityIdx int) {
	m.get(handle).QualityChanged(qualityIdx)
}

// NeedsClipboardButtonQuery reports whether the named Window's page should
// show a clipboard button. Matches WindowManager::needsClipboardButtonQuery.
func (m *Manager) NeedsClipboardButtonQuery(handle uint64) bool {
	return m.get(handle).NeedsClipboardButton()
}

// ClipboardButtonPressed opens the named Window's clipboard dialog. Matches
// WindowManager::clipboardButtonPressed.
func (m *Manager) ClipboardButtonPressed(handle uint64, currentText string) {
	m.get(handle).ClipboardButtonPressed(m.secretGen, currentText)
}

// PutFileDownload registers a completed download on the named Window.
// Matches WindowManager::putFileDownload.
func (m *Manager) PutFileDownload(handle uint64, name, path string, cleanup func()) {
	m.get(handle).PutFileDownload(name, path, cleanup)
}

// StartFileUpload enters file-upload mode on the named Window. Matches
// WindowManager::startFileUpload.
func (m *Manager) StartFileUpload(handle uint64) bool { return m.get(handle).StartFileUpload() }

// CancelFileUpload leaves file-upload mode on the named Window. Matches
// WindowManager::cancelFileUpload.
func (m *Manager) CancelFileUpload(handle uint64) { m.get(handle).CancelFileUpload() }

// --- window.EventHandler -----------------------------------------------
//
// Every method below forwards to the host EventHandler after the
// bookkeeping window_manager.cpp's FORWARD_WINDOW_EVENT macro performs:
// dropping the Window from the map first (for OnWindowClose) or requiring
// the Manager is still open and the Window still tracked (everything else).

func (m *Manager) OnWindowClose(handle uint64) {
	corelog.Require(m.windowExists(handle), "windowmanager: close callback for untracked window ", handle)
	delete(m.windows, handle)
	m.eventHandler.OnCloseWindow(handle)
}

func (m *Manager) OnWindowFetchImage(handle uint64) (data []byte, width, height, pitch int) {
	return m.eventHandler.OnFetchImage(handle)
}

func (m *Manager) OnWindowResize(handle uint64, width, height int) {
	m.eventHandler.OnResizeWindow(handle, width, height)
}

func (m *Manager) OnWindowMouseDown(handle uint64, x, y, button int) {
	m.eventHandler.OnMouseDown(handle, x, y, button)
}

func (m *Manager) OnWindowMouseUp(handle uint64, x, y, button int) {
	m.eventHandler.OnMouseUp(handle, x, y, button)
}

func (m *Manager) OnWindowMouseMove(handle uint64, x, y int) {
	m.eventHandler.OnMouseMove(handle, x, y)
}

func (m *Manager) OnWindowMouseDoubleClick(handle uint64, x, y, button int) {
	m.eventHandler.OnMouseDoubleClick(handle, x, y, button)
}

func (m *Manager) OnWindowMouseWheel(handle uint64, x, y, delta int) {
	m.eventHandler.OnMouseWheel(handle, x, y, delta)
}

func (m *Manager) OnWindowMouseLeave(handle uint64, x, y int) {
	m.eventHandler.OnMouseLeave(handle, x, y)
}

func (m *Manager) OnWindowKeyDown(handle uint64, key int) { m.eventHandler.OnKeyDown(handle, key) }
func (m *Manager) OnWindowKeyUp(handle uint64, key int)   { m.eventHandler.OnKeyUp(handle, key) }

func (m *Manager) OnWindowLoseFocus(handle uint64) { m.eventHandler.OnLoseFocus(handle) }

func (m *Manager) OnWindowNavigate(handle uint64, direction int) {
	m.eventHandler.OnNavigate(handle, direction)
}

func (m *Manager) OnWindowUploadFile(handle uint64, name, path string) {
	m.eventHandler.OnUploadFile(handle, name, path)
}

func (m *Manager) OnWindowCancelFileUpload(handle uint64) {
	m.eventHandler.OnCancelFileUpload(handle)
}

// hasPNGSupport reports whether the client's user agent is known to render
// PNG, matching window_manager.cpp's denylist (duplicated from
// internal/window/quality.go's unexported copy, since the Manager decides
// allowPNG at Window-creation time, before any Window exists to ask).
func hasPNGSupport(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	return !strings.Contains(ua, "windows 3.1") &&
		!strings.Contains(ua, "win16") &&
		!strings.Contains(ua, "windows 16-bit")
}
