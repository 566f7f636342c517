package windowmanager_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/httpserver"
	"github.com/ttalvitie/retrojsvice/internal/secrets"
	"github.com/ttalvitie/retrojsvice/internal/testutil"
	"github.com/ttalvitie/retrojsvice/internal/windowmanager"
)

// stubHost is a windowmanager.EventHandler test double that hands out
// sequential handles and records every close/upload/navigate callback.
type stubHost struct {
	mu        sync.Mutex
	nextHandle uint64
	deny      string
	closed    []uint64
}

func newStubHost() *stubHost { return &stubHost{nextHandle: 1} }

func (h *stubHost) OnCreateWindowRequest() windowmanager.CreateResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.deny != "" {
		return windowmanager.CreateResult{Denied: h.deny}
	}
	handle := h.nextHandle
	h.nextHandle++
	return windowmanager.CreateResult{Handle: handle}
}

func (h *stubHost) OnCloseWindow(handle uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, handle)
}

func (h *stubHost) OnFetchImage(handle uint64) (data []byte, width, height, pitch int) {
	return []byte{0, 0, 0, 0}, 1, 1, 1
}
func (h *stubHost) OnResizeWindow(handle uint64, width, height int)          {}
func (h *stubHost) OnMouseDown(handle uint64, x, y, button int)              {}
func (h *stubHost) OnMouseUp(handle uint64, x, y, button int)                {}
func (h *stubHost) OnMouseMove(handle uint64, x, y int)                      {}
func (h *stubHost) OnMouseDoubleClick(handle uint64, x, y, button int)       {}
func (h *stubHost) OnMouseWheel(handle uint64, x, y, delta int)              {}
func (h *stubHost) OnMouseLeave(handle uint64, x, y int)                     {}
func (h *stubHost) OnKeyDown(handle uint64, key int)                        {}
func (h *stubHost) OnKeyUp(handle uint64, key int)                          {}
func (h *stubHost) OnLoseFocus(handle uint64)                               {}
func (h *stubHost) OnNavigate(handle uint64, direction int)                 {}
func (h *stubHost) OnUploadFile(handle uint64, name, path string)           {}
func (h *stubHost) OnCancelFileUpload(handle uint64)                        {}

func (h *stubHost) closeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.closed)
}

func startManager(t *testing.T, addr string, host *stubHost) (*windowmanager.Manager, func()) {
	t.Helper()
	queue, _ := testutil.NewQueuePump()
	mgr := windowmanager.New(host, secrets.NewGenerator(), queue, "test", 101, "")

	srv, err := httpserver.Start(httpserver.Options{
		ListenAddr: addr,
		Handler: func(req *httpserver.Request) {
			queue.Post(func() { mgr.HandleHTTPRequest(req) })
		},
	})
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	return mgr, func() { srv.Shutdown() }
}

func TestNewWindowFlowRedirectsToPathPrefix(t *testing.T) {
	host := newStubHost()
	_, stop := startManager(t, "127.0.0.1:18401", host)
	defer stop()

	resp, err := http.Get("http://127.0.0.1:18401/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewWindowDeniedReturns503(t *testing.T) {
	host := newStubHost()
	host.deny = "no capacity"
	_, stop := startManager(t, "127.0.0.1:18402", host)
	defer stop()

	resp, err := http.Get("http://127.0.0.1:18402/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestUnknownWindowHandleReturns400(t *testing.T) {
	host := newStubHost()
	_, stop := startManager(t, "127.0.0.1:18403", host)
	defer stop()

	resp, err := http.Get("http://127.0.0.1:18403/999/whatever/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMalformedPathReturns400(t *testing.T) {
	host := newStubHost()
	_, stop := startManager(t, "127.0.0.1:18404", host)
	defer stop()

	resp, err := http.Get("http://127.0.0.1:18404/notanumber")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
