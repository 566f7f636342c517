// Command retrojsvice is built with `go build -buildmode=c-shared` to
// produce the vice plugin shared library that Browservice loads at
// runtime. This file implements component C8: the versioned C ABI surface
// (vicePluginAPI_isAPIVersionSupported, vicePluginAPI_createVersionString,
// vicePluginAPI_createCreditsString, vicePluginAPI_malloc/free, context
// lifecycle, and the Context operation wrappers), grounded on
// vice_plugin_api.cpp's WRAP_CTX_API macro and API_FUNC_START/END panic
// firewall.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef enum {
	RETROJSVICE_CURSOR_NORMAL = 0,
	RETROJSVICE_CURSOR_HAND,
	RETROJSVICE_CURSOR_TEXT
} RetrojsviceMouseCursor;

typedef struct {
	void (*shutdownComplete)(void* data);
} RetrojsviceCallbacks;

typedef struct {
	void (*createWindowRequest)(void* data, uint64_t* handleOut, char** deniedOut);
	void (*closeWindow)(void* data, uint64_t window);
	void (*fetchImage)(void* data, uint64_t window, const uint8_t** dataOut, size_t* widthOut, size_t* heightOut, size_t* pitchOut);
	void (*resizeWindow)(void* data, uint64_t window, size_t width, size_t height);
	void (*mouseDown)(void* data, uint64_t window, int x, int y, int button);
	void (*mouseUp)(void* data, uint64_t window, int x, int y, int button);
	void (*mouseMove)(void* data, uint64_t window, int x, int y);
	void (*mouseDoubleClick)(void* data, uint64_t window, int x, int y, int button);
	void (*mouseWheel)(void* data, uint64_t window, int x, int y, int delta);
	void (*mouseLeave)(void* data, uint64_t window, int x, int y);
	void (*keyDown)(void* data, uint64_t window, int key);
	void (*keyUp)(void* data, uint64_t window, int key);
	void (*loseFocus)(void* data, uint64_t window);
	void (*navigate)(void* data, uint64_t window, int direction);
	void (*uploadFile)(void* data, uint64_t window, const char* name, const char* path);
	void (*cancelFileUpload)(void* data, uint64_t window);
} RetrojsviceEventCallbacks;

// cgo cannot call a C function pointer directly from Go, so every callback
// field gets a tiny trampoline that does the indirect call on the C side.
static void call_shutdown_complete(void (*f)(void*), void* data) { f(data); }

static void call_create_window_request(RetrojsviceEventCallbacks* cb, void* data, uint64_t* handleOut, char** deniedOut) {
	cb->createWindowRequest(data, handleOut, deniedOut);
}
static void call_close_window(RetrojsviceEventCallbacks* cb, void* data, uint64_t window) {
	cb->closeWindow(data, window);
}
static void call_fetch_image(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, const uint8_t** dataOut, size_t* widthOut, size_t* heightOut, size_t* pitchOut) {
	cb->fetchImage(data, window, dataOut, widthOut, heightOut, pitchOut);
}
static void call_resize_window(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, size_t width, size_t height) {
	cb->resizeWindow(data, window, width, height);
}
static void call_mouse_down(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, int x, int y, int button) {
	cb->mouseDown(data, window, x, y, button);
}
static void call_mouse_up(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, int x, int y, int button) {
	cb->mouseUp(data, window, x, y, button);
}
static void call_mouse_move(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, int x, int y) {
	cb->mouseMove(data, window, x, y);
}
static void call_mouse_double_click(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, int x, int y, int button) {
	cb->mouseDoubleClick(data, window, x, y, button);
}
static void call_mouse_wheel(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, int x, int y, int delta) {
	cb->mouseWheel(data, window, x, y, delta);
}
static void call_mouse_leave(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, int x, int y) {
	cb->mouseLeave(data, window, x, y);
}
static void call_key_down(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, int key) {
	cb->keyDown(data, window, key);
}
static void call_key_up(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, int key) {
	cb->keyUp(data, window, key);
}
static void call_lose_focus(RetrojsviceEventCallbacks* cb, void* data, uint64_t window) {
	cb->loseFocus(data, window);
}
static void call_navigate(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, int direction) {
	cb->navigate(data, window, direction);
}
static void call_upload_file(RetrojsviceEventCallbacks* cb, void* data, uint64_t window, const char* name, const char* path) {
	cb->uploadFile(data, window, name, path);
}
static void call_cancel_file_upload(RetrojsviceEventCallbacks* cb, void* data, uint64_t window) {
	cb->cancelFileUpload(data, window);
}
*/
import "C"

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/vicecontext"
)

const apiVersion = uint64(2000000)

func main() {} // unused; required so -buildmode=c-shared can link this package

// handle wraps a *vicecontext.Context plus the host's event callbacks, kept
// alive in goHandles by a handle the host passes back on every call instead
// of a Go pointer (which cgo forbids storing on the C side).
type handle struct {
	ctx  *vicecontext.Context
	host *cEventHandler
}

var (
	handles    = map[C.uint64_t]*handle{}
	nextHandle C.uint64_t = 1
)

//export retrojsvice_is_api_version_supported
func retrojsvice_is_api_version_supported(version C.uint64_t) C.int {
	defer panicFirewall()
	if uint64(version) == apiVersion {
		return 1
	}
	return 0
}

//export retrojsvice_create_version_string
func retrojsvice_create_version_string() *C.char {
	defer panicFirewall()
	return C.CString("Retrojsvice 0.9.6.1")
}

//export retrojsvice_create_credits_string
func retrojsvice_create_credits_string() *C.char {
	defer panicFirewall()
	return C.CString(creditsText)
}

//export retrojsvice_malloc
func retrojsvice_malloc(size C.size_t) unsafe.Pointer {
	defer panicFirewall()
	return C.malloc(size)
}

//export retrojsvice_free
func retrojsvice_free(ptr unsafe.Pointer) {
	defer panicFirewall()
	C.free(ptr)
}

//export retrojsvice_init_context
func retrojsvice_init_context(
	version C.uint64_t,
	optionNames **C.char,
	optionValues **C.char,
	optionCount C.size_t,
	programName *C.char,
	eventCallbacks C.RetrojsviceEventCallbacks,
	callbackData unsafe.Pointer,
	initErrorMsgOut **C.char,
) C.uint64_t {
	defer panicFirewall()
	corelog.Require(uint64(version) == apiVersion, "retrojsvice: unsupported API version")

	rawOptions := make([][2]string, 0, int(optionCount))
	names := unsafe.Slice(optionNames, int(optionCount))
	values := unsafe.Slice(optionValues, int(optionCount))
	for i := 0; i < int(optionCount); i++ {
		rawOptions = append(rawOptions, [2]string{C.GoString(names[i]), C.GoString(values[i])})
	}

	host := newCEventHandler(eventCallbacks, callbackData)
	ctx, err := vicecontext.Init(rawOptions, host, C.GoString(programName))
	if err != nil {
		setOutString(initErrorMsgOut, err.Error())
		return 0
	}

	h := nextHandle
	nextHandle++
	handles[h] = &handle{ctx: ctx, host: host}
	return h
}

//export retrojsvice_destroy_context
func retrojsvice_destroy_context(h C.uint64_t) {
	defer panicFirewall()
	corelog.Require(handles[h] != nil, "retrojsvice: unknown context handle")
	delete(handles, h)
}

//export retrojsvice_start
func retrojsvice_start(h C.uint64_t, callbacks C.RetrojsviceCallbacks, callbackData unsafe.Pointer) {
	defer panicFirewall()
	ctx := getHandle(h).ctx
	corelog.Require(ctx.Start(vicecontext.Callbacks{
		OnShutdownComplete: func() {
			if callbacks.shutdownComplete != nil {
				C.call_shutdown_complete(callbacks.shutdownComplete, callbackData)
			}
		},
	}) == nil, "retrojsvice: failed to start")
}

//export retrojsvice_shutdown
func retrojsvice_shutdown(h C.uint64_t) {
	defer panicFirewall()
	getHandle(h).ctx.Shutdown()
}

//export retrojsvice_pump_events
func retrojsvice_pump_events(h C.uint64_t) {
	defer panicFirewall()
	getHandle(h).ctx.PumpEvents()
}

//export retrojsvice_create_popup_window
func retrojsvice_create_popup_window(h C.uint64_t, parentWindow, popupWindow C.uint64_t, msgOut **C.char) C.int {
	defer panicFirewall()
	ok, reason := getHandle(h).ctx.CreatePopupWindow(uint64(parentWindow), uint64(popupWindow))
	if !ok {
		setOutString(msgOut, reason)
		return 0
	}
	return 1
}

//export retrojsvice_close_window
func retrojsvice_close_window(h C.uint64_t, window C.uint64_t) {
	defer panicFirewall()
	getHandle(h).ctx.CloseWindow(uint64(window))
}

//export retrojsvice_notify_window_view_changed
func retrojsvice_notify_window_view_changed(h C.uint64_t, window C.uint64_t) {
	defer panicFirewall()
	getHandle(h).ctx.NotifyWindowViewChanged(uint64(window))
}

//export retrojsvice_set_window_cursor
func retrojsvice_set_window_cursor(h C.uint64_t, window C.uint64_t, cursor C.RetrojsviceMouseCursor) {
	defer panicFirewall()
	getHandle(h).ctx.SetWindowCursor(uint64(window), int(cursor))
}

//export retrojsvice_window_quality_selector_query
func retrojsvice_window_quality_selector_query(h C.uint64_t, window C.uint64_t, qualityListOut **C.char, currentQualityOut *C.size_t) C.int {
	defer panicFirewall()
	options, currentIdx := getHandle(h).ctx.WindowQualitySelectorQuery(uint64(window))
	if len(options) == 0 {
		return 0
	}
	setOutString(qualityListOut, joinComma(options))
	*currentQualityOut = C.size_t(currentIdx)
	return 1
}

//export retrojsvice_window_quality_changed
func retrojsvice_window_quality_changed(h C.uint64_t, window C.uint64_t, qualityIdx C.size_t) {
	defer panicFirewall()
	getHandle(h).ctx.WindowQualityChanged(uint64(window), int(qualityIdx))
}

//export retrojsvice_window_needs_clipboard_button_query
func retrojsvice_window_needs_clipboard_button_query(h C.uint64_t, window C.uint64_t) C.int {
	defer panicFirewall()
	if getHandle(h).ctx.WindowNeedsClipboardButtonQuery(uint64(window)) {
		return 1
	}
	return 0
}

//export retrojsvice_window_clipboard_button_pressed
func retrojsvice_window_clipboard_button_pressed(h C.uint64_t, window C.uint64_t, currentText *C.char) {
	defer panicFirewall()
	getHandle(h).ctx.WindowClipboardButtonPressed(uint64(window), C.GoString(currentText))
}

//export retrojsvice_start_file_upload
func retrojsvice_start_file_upload(h C.uint64_t, window C.uint64_t) C.int {
	defer panicFirewall()
	if getHandle(h).ctx.StartFileUpload(uint64(window)) {
		return 1
	}
	return 0
}

//export retrojsvice_cancel_file_upload
func retrojsvice_cancel_file_upload(h C.uint64_t, window C.uint64_t) {
	defer panicFirewall()
	getHandle(h).ctx.CancelFileUpload(uint64(window))
}

func getHandle(h C.uint64_t) *handle {
	v := handles[h]
	corelog.Require(v != nil, "retrojsvice: unknown context handle")
	return v
}

func panicFirewall() {
	if r := recover(); r != nil {
		msg := fmt.Sprint(r)
		corelog.Error("retrojsvice: unhandled panic crossing the C ABI: ", msg)
		fmt.Fprintln(os.Stderr, "retrojsvice: fatal: ", msg)
		os.Exit(1)
	}
}
