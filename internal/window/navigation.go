package window

import (
	"strconv"
	"strings"

	"github.com/ttalvitie/retrojsvice/internal/htmlpages"
	"github.com/ttalvitie/retrojsvice/internal/httpserver"
)

// handleNavRequest implements the two-step "/prev/" and "/next/" protocol
// from spec.md §4.5: legacy browsers issue spurious navigation preloads, so
// the first visit only records a decoy flag and the second actually fires
// the navigation, redirecting back to the main page.
func (w *Window) handleNavRequest(req *httpserver.Request, forward bool) {
	visited := &w.prePrevVisited
	direction := -1
	if forward {
		visited = &w.preNextVisited
		direction = 1
	}

	if !*visited {
		*visited = true
		req.SendHTML(200, htmlpages.PreNav(w.pathPrefix, forward))
		return
	}

	*visited = false
	w.eventHandler.OnWindowNavigate(w.handle, direction)
	req.SendRedirect(303, w.pathPrefix)
}

// handleIframeRequest serves the next body in the Window's iframe FIFO —
// download links, the upload modal, or the clipboard dialog — consuming one
// entry per request, matching the "iframe queue" described in the GLOSSARY.
func (w *Window) handleIframeRequest(req *httpserver.Request, rest string) {
	mainIdxStr, _, _ := strings.Cut(rest, "/")
	mainIdx, err := strconv.ParseUint(mainIdxStr, 10, 64)
	if err != nil || mainIdx != w.curMainIdx {
		req.SendTextError(400, "stale iframe request")
		return
	}

	if len(w.iframeQueue) == 0 {
		req.SendTextError(400, "no pending iframe content")
		return
	}

	next := w.iframeQueue[0]
	w.iframeQueue = w.iframeQueue[1:]
	next(req)
}

// addIframe appends an iframe body producer to the FIFO, to be served by
// the next "iframe/<mainIdx>/<n>/" request.
func (w *Window) addIframe(fn func(*httpserver.Request)) {
	w.iframeQueue = append(w.iframeQueue, fn)
}
