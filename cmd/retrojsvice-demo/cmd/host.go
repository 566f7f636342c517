package cmd

import (
	"context"
	"sync"

	"github.com/ttalvitie/retrojsvice/internal/browserframe"
	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/frame"
	"github.com/ttalvitie/retrojsvice/internal/windowmanager"
)

// windowBacking is whatever backs a single demo window's rendering and
// input: either a synthetic frame.Checkerboard or a real headless Chrome
// tab (internal/browserframe), depending on whether demoHost.browseURL is
// set.
type windowBacking struct {
	board *frame.Checkerboard
	tab   *browserframe.Tab
}

// demoHost implements windowmanager.EventHandler. When browseURL is empty
// every window is backed by its own frame.Checkerboard test pattern; when
// set, each window instead drives its own headless Chrome tab navigated to
// browseURL, logging every other callback so the bridge's behavior is
// observable from the terminal.
type demoHost struct {
	browseURL string

	mu         sync.Mutex
	nextHandle uint64
	windows    map[uint64]*windowBacking
}

func newDemoHost(browseURL string) *demoHost {
	return &demoHost{browseURL: browseURL, nextHandle: 1, windows: make(map[uint64]*windowBacking)}
}

func (h *demoHost) OnCreateWindowRequest() windowmanager.CreateResult {
	h.mu.Lock()
	handle := h.nextHandle
	h.nextHandle++
	h.mu.Unlock()

	backing := &windowBacking{}
	if h.browseURL != "" {
		tab, err := browserframe.Open(context.Background(), h.browseURL, 1024, 768)
		if err != nil {
			corelog.Warning("retrojsvice-demo: failed to open browser tab for window ", handle, ": ", err)
			return windowmanager.CreateResult{Denied: "failed to start embedded browser"}
		}
		backing.tab = tab
	} else {
		backing.board = frame.NewCheckerboard(1024, 768, 16)
	}

	h.mu.Lock()
	h.windows[handle] = backing
	h.mu.Unlock()

	corelog.Info("retrojsvice-demo: created window ", handle)
	return windowmanager.CreateResult{Handle: handle}
}

func (h *demoHost) OnCloseWindow(handle uint64) {
	h.mu.Lock()
	backing := h.windows[handle]
	delete(h.windows, handle)
	h.mu.Unlock()

	if backing != nil && backing.tab != nil {
		backing.tab.Close()
	}
	corelog.Info("retrojsvice-demo: closed window ", handle)
}

func (h *demoHost) get(handle uint64) *windowBacking {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.windows[handle]
}

func (h *demoHost) OnFetchImage(handle uint64) (data []byte, width, height, pitch int) {
	backing := h.get(handle)
	switch {
	case backing == nil:
		return []byte{0, 0, 0, 0}, 1, 1, 1
	case backing.tab != nil:
		return backing.tab.Fetch()
	default:
		return backing.board.Fetch()
	}
}

func (h *demoHost) OnResizeWindow(handle uint64, width, height int) {
	backing := h.get(handle)
	if backing == nil {
		return
	}
	if backing.tab != nil {
		backing.tab.Resize(width, height)
		return
	}
	backing.board.Width, backing.board.Height = width, height
}

func (h *demoHost) OnMouseDown(handle uint64, x, y, button int) {
	if backing := h.get(handle); backing != nil && backing.tab != nil {
		backing.tab.DispatchMouseButton(x, y, button, true)
	}
}

func (h *demoHost) OnMouseUp(handle uint64, x, y, button int) {
	if backing := h.get(handle); backing != nil && backing.tab != nil {
		backing.tab.DispatchMouseButton(x, y, button, false)
	}
}

func (h *demoHost) OnMouseMove(handle uint64, x, y int) {
	if backing := h.get(handle); backing != nil && backing.tab != nil {
		backing.tab.DispatchMouseMove(x, y)
	}
}

func (h *demoHost) OnMouseDoubleClick(handle uint64, x, y, button int) {
	if backing := h.get(handle); backing != nil && backing.tab != nil {
		backing.tab.DispatchMouseButton(x, y, button, true)
		backing.tab.DispatchMouseButton(x, y, button, false)
	}
}

func (h *demoHost) OnMouseWheel(handle uint64, x, y, delta int) {
	if backing := h.get(handle); backing != nil && backing.tab != nil {
		backing.tab.DispatchMouseWheel(x, y, delta)
	}
}

func (h *demoHost) OnMouseLeave(handle uint64, x, y int) {}

func (h *demoHost) OnKeyDown(handle uint64, key int) {
	if backing := h.get(handle); backing != nil && backing.tab != nil {
		backing.tab.DispatchKey(key, true)
	}
}

func (h *demoHost) OnKeyUp(handle uint64, key int) {
	if backing := h.get(handle); backing != nil && backing.tab != nil {
		backing.tab.DispatchKey(key, false)
	}
}

func (h *demoHost) OnLoseFocus(handle uint64) {}

func (h *demoHost) OnNavigate(handle uint64, direction int) {
	corelog.Info("retrojsvice-demo: window ", handle, " navigate ", direction)
}

func (h *demoHost) OnUploadFile(handle uint64, name, path string) {
	corelog.Info("retrojsvice-demo: window ", handle, " uploaded ", name, " to ", path)
}

func (h *demoHost) OnCancelFileUpload(handle uint64) {}
