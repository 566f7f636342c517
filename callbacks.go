package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/ttalvitie/retrojsvice/internal/windowmanager"
)

// cEventHandler adapts a host's RetrojsviceEventCallbacks (received across
// the C ABI at retrojsvice_init_context) into a windowmanager.EventHandler,
// the Go-native interface every other component already speaks. Every
// method here runs on the API thread, matching the callback-always-on-the-
// API-thread guarantee in spec.md §4.8.
type cEventHandler struct {
	callbacks C.RetrojsviceEventCallbacks
	data      unsafe.Pointer
}

func newCEventHandler(callbacks C.RetrojsviceEventCallbacks, data unsafe.Pointer) *cEventHandler {
	return &cEventHandler{callbacks: callbacks, data: data}
}

func (h *cEventHandler) OnCreateWindowRequest() windowmanager.CreateResult {
	var handleOut C.uint64_t
	var deniedOut *C.char
	C.call_create_window_request(&h.callbacks, h.data, &handleOut, &deniedOut)
	if handleOut == 0 {
		reason := ""
		if deniedOut != nil {
			reason = C.GoString(deniedOut)
			C.free(unsafe.Pointer(deniedOut))
		}
		return windowmanager.CreateResult{Denied: reason}
	}
	return windowmanager.CreateResult{Handle: uint64(handleOut)}
}

func (h *cEventHandler) OnCloseWindow(window uint64) {
	C.call_close_window(&h.callbacks, h.data, C.uint64_t(window))
}

func (h *cEventHandler) OnFetchImage(window uint64) (data []byte, width, height, pitch int) {
	var dataOut *C.uint8_t
	var widthOut, heightOut, pitchOut C.size_t
	C.call_fetch_image(&h.callbacks, h.data, C.uint64_t(window), &dataOut, &widthOut, &heightOut, &pitchOut)
	if dataOut == nil {
		return nil, 0, 0, 0
	}
	width, height, pitch = int(widthOut), int(heightOut), int(pitchOut)
	n := 4 * pitch * height
	data = C.GoBytes(unsafe.Pointer(dataOut), C.int(n))
	return data, width, height, pitch
}

func (h *cEventHandler) OnResizeWindow(window uint64, width, height int) {
	C.call_resize_window(&h.callbacks, h.data, C.uint64_t(window), C.size_t(width), C.size_t(height))
}

func (h *cEventHandler) OnMouseDown(window uint64, x, y, button int) {
	C.call_mouse_down(&h.callbacks, h.data, C.uint64_t(window), C.int(x), C.int(y), C.int(button))
}

func (h *cEventHandler) OnMouseUp(window uint64, x, y, button int) {
	C.call_mouse_up(&h.callbacks, h.data, C.uint64_t(window), C.int(x), C.int(y), C.int(button))
}

func (h *cEventHandler) OnMouseMove(window uint64, x, y int) {
	C.call_mouse_move(&h.callbacks, h.data, C.uint64_t(window), C.int(x), C.int(y))
}

func (h *cEventHandler) OnMouseDoubleClick(window uint64, x, y, button int) {
	C.call_mouse_double_click(&h.callbacks, h.data, C.uint64_t(window), C.int(x), C.int(y), C.int(button))
}

func (h *cEventHandler) OnMouseWheel(window uint64, x, y, delta int) {
	C.call_mouse_wheel(&h.callbacks, h.data, C.uint64_t(window), C.int(x), C.int(y), C.int(delta))
}

func (h *cEventHandler) OnMouseLeave(window uint64, x, y int) {
	C.call_mouse_leave(&h.callbacks, h.data, C.uint64_t(window), C.int(x), C.int(y))
}

func (h *cEventHandler) OnKeyDown(window uint64, key int) {
	C.call_key_down(&h.callbacks, h.data, C.uint64_t(window), C.int(key))
}

func (h *cEventHandler) OnKeyUp(window uint64, key int) {
	C.call_key_up(&h.callbacks, h.data, C.uint64_t(window), C.int(key))
}

func (h *cEventHandler) OnLoseFocus(window uint64) {
	C.call_lose_focus(&h.callbacks, h.data, C.uint64_t(window))
}

func (h *cEventHandler) OnNavigate(window uint64, direction int) {
	C.call_navigate(&h.callbacks, h.data, C.uint64_t(window), C.int(direction))
}

func (h *cEventHandler) OnUploadFile(window uint64, name, path string) {
	cName, cPath := C.CString(name), C.CString(path)
	defer C.free(unsafe.Pointer(cName))
	defer C.free(unsafe.Pointer(cPath))
	C.call_upload_file(&h.callbacks, h.data, C.uint64_t(window), cName, cPath)
}

func (h *cEventHandler) OnCancelFileUpload(window uint64) {
	C.call_cancel_file_upload(&h.callbacks, h.data, C.uint64_t(window))
}
