package window

import (
	"time"

	"github.com/ttalvitie/retrojsvice/internal/htmlpages"
	"github.com/ttalvitie/retrojsvice/internal/httpserver"
	"github.com/ttalvitie/retrojsvice/internal/secrets"
)

const clipboardExchangeTimeout = time.Second

// ClipboardButtonPressed opens the clipboard dialog: queues an iframe
// showing the current clipboard text and arms a short-lived CSRF token for
// the paste-back POST, matching Window::clipboardButtonPressed. A prior
// unconsumed exchange is superseded.
func (w *Window) ClipboardButtonPressed(secretGen *secrets.Generator, currentText string) {
	if w.closed {
		return
	}

	w.clipboardText = currentText
	w.clipboardCSRFToken = secretGen.CSRFToken()
	w.updateInactivityTimeout(true)

	if w.clipboardTag != nil {
		w.clipboardTag.Cancel()
	}
	w.clipboardTag = w.queue.PostDelayed(clipboardExchangeTimeout, func() {
		w.clipboardTag = nil
		w.clipboardCSRFToken = ""
	})

	w.addIframe(func(req *httpserver.Request) {
		req.SendHTML(200, htmlpages.ClipboardDialog(w.clipboardCSRFToken, w.clipboardText))
	})
}

// handleClipboardRequest serves the GET that opened the dialog (handled via
// the iframe queue above) or accepts the POST that writes new clipboard
// text back, gated by the short-lived exchange token.
func (w *Window) handleClipboardRequest(req *httpserver.Request) {
	if req.Method != "POST" {
		req.SendTextError(400, "clipboard requires POST")
		return
	}

	if w.clipboardCSRFToken == "" || !secrets.Equal(req.FormValue("csrf"), w.clipboardCSRFToken) {
		req.SendTextError(400, "expired or invalid clipboard exchange")
		return
	}

	if w.clipboardTag != nil {
		w.clipboardTag.Cancel()
		w.clipboardTag = nil
	}
	w.clipboardCSRFToken = ""
	w.clipboardText = req.FormValue("text")

	req.SendTextError(200, "clipboard updated")
}

// ClipboardText returns the text most recently submitted through the
// clipboard dialog, for the host to read via OnWindowClipboardChanged-style
// polling (SPEC_FULL.md keeps clipboard state on the Window rather than the
// Context-global design in context.hpp, to keep ownership local).
func (w *Window) ClipboardText() string {
	return w.clipboardText
}
