package window

import (
	"strconv"

	"github.com/ttalvitie/retrojsvice/internal/httpserver"
)

// handleImageRequest implements the "image" path: accepted only if main
// matches the current main index and img strictly exceeds the last
// accepted image index, per spec.md §4.5 and testable property 1.
func (w *Window) handleImageRequest(req *httpserver.Request) {
	mainIdx, err1 := strconv.ParseUint(req.Query("main"), 10, 64)
	imgIdx, err2 := strconv.ParseUint(req.Query("img"), 10, 64)
	if err1 != nil || err2 != nil || mainIdx != w.curMainIdx || imgIdx <= w.curImgIdx {
		req.SendTextError(400, "stale or invalid image request")
		return
	}
	w.curImgIdx = imgIdx

	startEventIdx, err := strconv.ParseUint(req.Query("EI"), 10, 64)
	if err != nil {
		startEventIdx = w.curEventIdx
	}
	w.handleEvents(startEventIdx, req.Query("e"))

	width, errW := strconv.Atoi(req.Query("w"))
	height, errH := strconv.Atoi(req.Query("h"))
	if errW == nil && errH == nil {
		width = clampDimension(width)
		height = clampDimension(height)
		if width != w.width || height != w.height {
			w.width, w.height = width, height
			w.eventHandler.OnWindowResize(w.handle, width, height)
		}
	}

	immediate := req.Query("imm") == "1"
	if immediate {
		w.compressor.SendNow(req)
	} else {
		w.compressor.SendWait(req)
	}
}

func clampDimension(v int) int {
	if v < minDimension {
		return minDimension
	}
	if v > maxDimension {
		return maxDimension
	}
	return v
}
