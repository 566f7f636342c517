// Package vicecontext implements component C7: the top-level object a host
// program creates, starts, pumps and shuts down. It owns every other
// component — the task queue (C1), the HTTP server (C2), the secret
// generator (C4) and the window manager (C6) — plus the optional
// SPEC_FULL.md extras (upload mirroring, the debug websocket channel and
// the SQLite audit log) when their options are set. Grounded on
// context.hpp/context.cpp, adapted from the three-interface C++ object
// (HTTPServerEventHandler + TaskQueueEventHandler + WindowManagerEventHandler)
// into a single Go type that implements taskqueue.EventHandler directly and
// wires windowmanager.Manager in as its own EventHandler.
package vicecontext

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/devchannel"
	"github.com/ttalvitie/retrojsvice/internal/downloadlog"
	"github.com/ttalvitie/retrojsvice/internal/httpserver"
	"github.com/ttalvitie/retrojsvice/internal/secrets"
	"github.com/ttalvitie/retrojsvice/internal/taskqueue"
	"github.com/ttalvitie/retrojsvice/internal/uploadstore"
	"github.com/ttalvitie/retrojsvice/internal/windowmanager"
)

// uploadTempDirPrefix names the per-Context temp directory new uploads are
// written into, matching spec.md §6's "Persisted state" requirement.
const uploadTempDirPrefix = "retrojsvicetmp_"

type state int

const (
	statePending state = iota
	stateRunning
	stateShutdownComplete
)

type shutdownPhase int

const (
	noPendingShutdown shutdownPhase = iota
	waitWindowManager
	waitHTTPServer
	waitTaskQueue
)

// Callbacks mirrors the subset of VicePluginAPI_Callbacks the core calls
// back into the host program with.
type Callbacks struct {
	OnShutdownComplete func()
}

// Context is the top-level owner of a running retrojsvice instance. It is
// not safe for concurrent API calls: like the original, at most one call
// into a Context may be in flight at a time, enforced by inAPICall.
type Context struct {
	opts        Options
	programName string

	state         state
	shutdownPhase shutdownPhase
	inAPICall     atomic.Bool

	callbacks Callbacks

	queue         *taskqueue.Queue
	httpServer    *httpserver.Server
	secretGen     *secrets.Generator
	windowManager *windowmanager.Manager

	uploadStore   uploadstore.Store
	auditLog      *downloadlog.Log
	devChannel    *devchannel.Channel
	uploadDirBase string
}

// Init validates options and constructs a Context in the Pending state: its
// task queue, secret generator and window manager exist, but its HTTP
// server has not been started yet (mirrors Context::init, which defers
// http.hpp's Server construction to start()). Uploads accepted by any
// Window of this Context are written under a freshly created
// "retrojsvicetmp_"-prefixed temp directory, removed once the Context's
// shutdown completes, matching spec.md §6's "Persisted state" section.
func Init(rawOptions [][2]string, eventHandler windowmanager.EventHandler, programName string) (*Context, error) {
	opts, err := ParseOptions(rawOptions)
	if err != nil {
		return nil, err
	}

	uploadDir, err := os.MkdirTemp("", uploadTempDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("vicecontext: failed to create upload temp directory: %w", err)
	}

	ctx := &Context{
		opts:          opts,
		programName:   programName,
		state:         statePending,
		secretGen:     secrets.NewGenerator(),
		uploadStore:   uploadstore.NoopStore{},
		uploadDirBase: uploadDir,
	}

	if opts.UploadGCSBucket != "" {
		store, err := uploadstore.NewGCSStore(context.Background(), opts.UploadGCSBucket)
		if err != nil {
			os.RemoveAll(uploadDir)
			return nil, fmt.Errorf("vicecontext: failed to initialize upload store: %w", err)
		}
		ctx.uploadStore = store
	}

	if opts.AuditDB != "" {
		log, err := downloadlog.Open(opts.AuditDB)
		if err != nil {
			os.RemoveAll(uploadDir)
			return nil, fmt.Errorf("vicecontext: failed to open audit log: %w", err)
		}
		ctx.auditLog = log
	}

	if opts.DebugWSAddr != "" {
		ch, err := devchannel.New(opts.DebugWSAddr)
		if err != nil {
			os.RemoveAll(uploadDir)
			return nil, fmt.Errorf("vicecontext: failed to start debug channel: %w", err)
		}
		ctx.devChannel = ch
	}

	bridge := newEventBridge(eventHandler, ctx.auditLog, ctx.devChannel, ctx.uploadStore)

	ctx.queue = taskqueue.New(ctx)
	ctx.windowManager = windowmanager.New(bridge, ctx.secretGen, ctx.queue, programName, opts.DefaultQuality, uploadDir)

	return ctx, nil
}

// AuditLog exposes the optional audit log so the host's window-manager
// event handler can record uploads/downloads as they complete; nil when
// --audit-db was not set.
func (c *Context) AuditLog() *downloadlog.Log { return c.auditLog }

// DevChannel exposes the optional debug websocket channel so the host's
// event handler can publish lifecycle events; nil when --debug-ws-addr was
// not set.
func (c *Context) DevChannel() *devchannel.Channel { return c.devChannel }

// UploadStore exposes the optional upload-mirroring backend; returns a
// no-op store when --upload-gcs-bucket was not set, so callers never need a
// nil check.
func (c *Context) UploadStore() uploadstore.Store { return c.uploadStore }

// WindowManager exposes C6 for API calls (CreatePopupWindow, CloseWindow,
// and so on) that pass straight through.
func (c *Context) WindowManager() *windowmanager.Manager { return c.windowManager }

// lockAPICall enforces the single-in-flight-call rule from context.hpp's
// atomic<bool> inAPICall_: re-entering a Context method from within another
// one of its own callbacks is a programming error in the host, not a
// recoverable condition.
func (c *Context) lockAPICall() {
	corelog.Require(c.inAPICall.CompareAndSwap(false, true), "vicecontext: concurrent or reentrant API call")
}

func (c *Context) unlockAPICall() {
	c.inAPICall.Store(false)
}

// Start begins serving HTTP requests and transitions the Context to
// Running. callbacks.OnShutdownComplete, if set, is invoked once Shutdown's
// three-phase teardown finishes.
func (c *Context) Start(callbacks Callbacks) error {
	c.lockAPICall()
	defer c.unlockAPICall()

	corelog.Require(c.state == statePending, "vicecontext: Start called outside Pending state")
	c.callbacks = callbacks

	server, err := httpserver.Start(httpserver.Options{
		ListenAddr:         c.opts.HTTPListenAddr,
		MaxThreads:         c.opts.HTTPMaxThreads,
		AuthUser:           c.opts.HTTPAuthUser,
		AuthPass:           c.opts.HTTPAuthPass,
		NewWindowRateLimit: c.opts.HTTPRateLimit,
		Handler: func(req *httpserver.Request) {
			// HTTP requests arrive on their own worker goroutine but all
			// window/window-manager state must only ever be touched from
			// the task queue's single logical API thread, so the request
			// is posted onward rather than handled inline here.
			c.queue.Post(func() { c.windowManager.HandleHTTPRequest(req) })
		},
	})
	if err != nil {
		return fmt.Errorf("vicecontext: failed to start HTTP server: %w", err)
	}
	c.httpServer = server
	c.state = stateRunning

	corelog.Info("vicecontext: started, listening on ", c.opts.HTTPListenAddr)
	return nil
}

// PumpEvents drains the task queue once. The host program is expected to
// call this repeatedly from its own event loop, typically in response to
// OnNeedsRunTasks (delivered as a separate host-level notification, not
// modeled here since it crosses the C ABI boundary in component C8).
func (c *Context) PumpEvents() {
	c.lockAPICall()
	defer c.unlockAPICall()

	corelog.Require(c.state != statePending, "vicecontext: PumpEvents called before Start")
	c.queue.RunTasks()
}

// Shutdown begins the three-phase teardown: close the window manager
// synchronously, then shut down the HTTP server, then the task queue,
// notifying callbacks.OnShutdownComplete only once all three have settled.
// Matches Context::shutdown's shutdownPhase_ state machine.
func (c *Context) Shutdown() {
	c.lockAPICall()
	defer c.unlockAPICall()

	corelog.Require(c.state == stateRunning, "vicecontext: Shutdown called outside Running state")
	corelog.Require(c.shutdownPhase == noPendingShutdown, "vicecontext: Shutdown called twice")

	corelog.Info("vicecontext: shutdown starting")
	c.shutdownPhase = waitWindowManager
	c.windowManager.Close()

	c.shutdownPhase = waitHTTPServer
	c.httpServer.Shutdown()

	c.shutdownPhase = waitTaskQueue
	c.queue.Shutdown()
}

// CreatePopupWindow mirrors Context::createPopupWindow.
func (c *Context) CreatePopupWindow(parentWindow, popupWindow uint64) (ok bool, reason string) {
	c.lockAPICall()
	defer c.unlockAPICall()
	return c.windowManager.CreatePopupWindow(parentWindow, popupWindow)
}

// CloseWindow mirrors Context::closeWindow.
func (c *Context) CloseWindow(window uint64) {
	c.lockAPICall()
	defer c.unlockAPICall()
	c.windowManager.CloseWindow(window)
}

// NotifyWindowViewChanged mirrors Context::notifyWindowViewChanged.
func (c *Context) NotifyWindowViewChanged(window uint64) {
	c.lockAPICall()
	defer c.unlockAPICall()
	c.windowManager.NotifyViewChanged(window)
}

// SetWindowCursor mirrors Context::setWindowCursor.
func (c *Context) SetWindowCursor(window uint64, cursorSignal int) {
	c.lockAPICall()
	defer c.unlockAPICall()
	c.windowManager.SetCursor(window, cursorSignal)
}

// WindowQualitySelectorQuery mirrors Context::windowQualitySelectorQuery.
func (c *Context) WindowQualitySelectorQuery(window uint64) (options []string, currentIdx int) {
	c.lockAPICall()
	defer c.unlockAPICall()
	return c.windowManager.QualitySelectorQuery(window)
}

// WindowQualityChanged mirrors Context::windowQualityChanged.
func (c *Context) WindowQualityChanged(window uint64, qualityIdx int) {
	c.lockAPICall()
	defer c.unlockAPICall()
	c.windowManager.QualityChanged(window, qualityIdx)
}

// WindowNeedsClipboardButtonQuery mirrors Context::windowNeedsClipboardButtonQuery.
func (c *Context) WindowNeedsClipboardButtonQuery(window uint64) bool {
	c.lockAPICall()
	defer c.unlockAPICall()
	return c.windowManager.NeedsClipboardButtonQuery(window)
}

// WindowClipboardButtonPressed mirrors Context::windowClipboardButtonPressed.
func (c *Context) WindowClipboardButtonPressed(window uint64, currentText string) {
	c.lockAPICall()
	defer c.unlockAPICall()
	c.windowManager.ClipboardButtonPressed(window, currentText)
}

// PutFileDownload mirrors Context::putFileDownload. When an audit log or
// debug channel is configured, the transfer is recorded/published on a
// detached goroutine so a slow SQLite insert can never delay a download
// already in flight to the client.
func (c *Context) PutFileDownload(window uint64, name, path string, cleanup func()) {
	c.lockAPICall()
	defer c.unlockAPICall()
	c.windowManager.PutFileDownload(window, name, path, cleanup)

	if c.auditLog != nil || c.devChannel != nil {
		go c.recordDownload(window, name, path)
	}
}

func (c *Context) recordDownload(window uint64, name, path string) {
	var size int64
	if info, err := os.Stat(path); err != nil {
		corelog.Warning("vicecontext: failed to stat download ", path, ": ", err)
	} else {
		size = info.Size()
	}

	if c.auditLog != nil {
		entry := downloadlog.Entry{
			WindowHandle: window,
			Direction:    downloadlog.Download,
			Filename:     name,
			SizeBytes:    size,
			OccurredAt:   time.Now(),
		}
		if err := c.auditLog.Record(entry); err != nil {
			corelog.Warning("vicecontext: failed to record download audit entry: ", err)
		}
	}

	if c.devChannel != nil {
		c.devChannel.Publish(devchannel.Event{Kind: "download", Window: window, Detail: name})
	}
}

// StartFileUpload mirrors Context::startFileUpload.
func (c *Context) StartFileUpload(window uint64) bool {
	c.lockAPICall()
	defer c.unlockAPICall()
	return c.windowManager.StartFileUpload(window)
}

// CancelFileUpload mirrors Context::cancelFileUpload.
func (c *Context) CancelFileUpload(window uint64) {
	c.lockAPICall()
	defer c.unlockAPICall()
	c.windowManager.CancelFileUpload(window)
}

// OnNeedsRunTasks implements taskqueue.EventHandler. It is called from
// background goroutines (HTTP worker threads, timers); the host program is
// expected to arrange for PumpEvents to run again soon, typically by waking
// up its own event loop. No host notification hook is modeled at this
// layer — see component C8 for how this crosses the C ABI as a callback.
func (c *Context) OnNeedsRunTasks() {}

// OnShutdownComplete implements taskqueue.EventHandler: the final phase of
// Shutdown has finished, so the host's completion callback, if any, fires
// and the Context is retired.
func (c *Context) OnShutdownComplete() {
	corelog.Require(c.shutdownPhase == waitTaskQueue, "vicecontext: unexpected task queue shutdown completion")
	c.state = stateShutdownComplete

	if c.auditLog != nil {
		_ = c.auditLog.Close()
	}
	if c.devChannel != nil {
		c.devChannel.Close()
	}
	if err := os.RemoveAll(c.uploadDirBase); err != nil {
		corelog.Warning("vicecontext: failed to remove upload temp directory ", c.uploadDirBase, ": ", err)
	}

	corelog.Info("vicecontext: shutdown complete")
	if c.callbacks.OnShutdownComplete != nil {
		c.callbacks.OnShutdownComplete()
	}
}
