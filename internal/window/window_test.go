package window_test

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/httpserver"
	"github.com/ttalvitie/retrojsvice/internal/secrets"
	"github.com/ttalvitie/retrojsvice/internal/testutil"
	"github.com/ttalvitie/retrojsvice/internal/window"
)

// recordingHandler is a window.EventHandler test double that records every
// callback it receives, following the recordingHandler pattern used in
// internal/taskqueue's tests.
type recordingHandler struct {
	mu sync.Mutex

	closed      []uint64
	resizes     []struct{ w, h int }
	navigations []int
	uploads     []struct{ name, path string }
}

func (h *recordingHandler) OnWindowClose(handle uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, handle)
}

func (h *recordingHandler) OnWindowFetchImage(handle uint64) (data []byte, width, height, pitch int) {
	return []byte{0, 0, 0, 0}, 1, 1, 1
}

func (h *recordingHandler) OnWindowResize(handle uint64, width, height int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.resizes = append(h.resizes, struct{ w, h int }{width, height})
}

func (h *recordingHandler) OnWindowMouseDown(handle uint64, x, y, button int)       {}
func (h *recordingHandler) OnWindowMouseUp(handle uint64, x, y, button int)         {}
func (h *recordingHandler) OnWindowMouseMove(handle uint64, x, y int)               {}
func (h *recordingHandler) OnWindowMouseDoubleClick(handle uint64, x, y, button int) {}
func (h *recordingHandler) OnWindowMouseWheel(handle uint64, x, y, delta int)       {}
func (h *recordingHandler) OnWindowMouseLeave(handle uint64, x, y int)              {}
func (h *recordingHandler) OnWindowKeyDown(handle uint64, key int)                  {}
func (h *recordingHandler) OnWindowKeyUp(handle uint64, key int)                    {}
func (h *recordingHandler) OnWindowLoseFocus(handle uint64)                         {}

func (h *recordingHandler) OnWindowNavigate(handle uint64, direction int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.navigations = append(h.navigations, direction)
}

func (h *recordingHandler) OnWindowUploadFile(handle uint64, name, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.uploads = append(h.uploads, struct{ name, path string }{name, path})
}

func (h *recordingHandler) OnWindowCancelFileUpload(handle uint64) {}

func (h *recordingHandler) closeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.closed)
}

// testWindow starts a real HTTP server whose handler posts every request to
// the window on queue's API thread, stripping the "/<handle>/" prefix the
// real WindowManager would have already consumed.
func testWindow(t *testing.T, addr string) (*window.Window, *recordingHandler, func()) {
	t.Helper()

	queue, _ := testutil.NewQueuePump()
	handler := &recordingHandler{}
	secretGen := secrets.NewGenerator()

	var w *window.Window
	queue.Post(func() {
		w = window.New(1, handler, queue, secretGen, "test", true, 101, "")
	})
	// New posts no async work of its own, but route creation through the
	// queue to respect the "API thread only" contract documented on Window.
	waitQuiescent(queue)

	handlePrefix := fmt.Sprintf("/%d/", w.Handle())

	srv, err := httpserver.Start(httpserver.Options{
		ListenAddr: addr,
		Handler: func(req *httpserver.Request) {
			if !strings.HasPrefix(req.Path, handlePrefix) {
				req.SendTextError(404, "no such window")
				return
			}
			rest := strings.TrimPrefix(req.Path, handlePrefix)
			queue.Post(func() {
				if w.Closed() {
					req.SendTextError(400, "window closed")
					return
				}
				w.HandleRequest(req, rest)
			})
		},
	})
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	return w, handler, func() { srv.Shutdown() }
}

// waitQuiescent gives the queue pump a moment to drain a just-Posted task;
// the tests below only need this before reading Window fields directly.
func waitQuiescent(queue interface{ Post(func()) }) {
	done := make(chan struct{})
	queue.Post(func() { close(done) })
	<-done
}

func TestHandleRequestRejectsBadCSRF(t *testing.T) {
	w, _, stop := testWindow(t, "127.0.0.1:18301")
	defer stop()

	resp, err := http.Get("http://127.0.0.1:18301/" + fmt.Sprint(w.Handle()) + "/wrong-token/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMainPageIncrementsMainIdx(t *testing.T) {
	w, _, stop := testWindow(t, "127.0.0.1:18302")
	defer stop()

	url := "http://127.0.0.1:18302" + w.PathPrefix()

	resp1, err := http.Get(url)
	require.NoError(t, err)
	body1, _ := readAndClose(resp1)
	require.Equal(t, http.StatusOK, resp1.StatusCode)
	require.Contains(t, string(body1), "main=1")

	resp2, err := http.Get(url)
	require.NoError(t, err)
	body2, _ := readAndClose(resp2)
	require.Contains(t, string(body2), "main=2")
}

func TestImageRequestAcceptsMonotonicIndicesOnly(t *testing.T) {
	w, _, stop := testWindow(t, "127.0.0.1:18303")
	defer stop()

	base := "http://127.0.0.1:18303" + w.PathPrefix()

	mainResp, err := http.Get(base)
	require.NoError(t, err)
	_, _ = readAndClose(mainResp)

	// main=1 matches the index the page above just produced; img=1 is the
	// first accepted image index.
	resp, err := http.Get(base + "image?main=1&img=1&imm=1&w=800&h=600&e=&EI=0")
	require.NoError(t, err)
	_, _ = readAndClose(resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A replayed (non-increasing) img index must be rejected.
	stale, err := http.Get(base + "image?main=1&img=1&imm=1&w=800&h=600&e=&EI=0")
	require.NoError(t, err)
	_, _ = readAndClose(stale)
	require.Equal(t, http.StatusBadRequest, stale.StatusCode)

	// A stale main index (the page has since moved on) must be rejected too.
	mainResp2, err := http.Get(base)
	require.NoError(t, err)
	_, _ = readAndClose(mainResp2)

	staleMain, err := http.Get(base + "image?main=1&img=2&imm=1&w=800&h=600&e=&EI=0")
	require.NoError(t, err)
	_, _ = readAndClose(staleMain)
	require.Equal(t, http.StatusBadRequest, staleMain.StatusCode)
}

func TestImageRequestResizeNotifiesHandlerOnce(t *testing.T) {
	w, handler, stop := testWindow(t, "127.0.0.1:18304")
	defer stop()

	base := "http://127.0.0.1:18304" + w.PathPrefix()
	mainResp, err := http.Get(base)
	require.NoError(t, err)
	_, _ = readAndClose(mainResp)

	resp, err := http.Get(base + "image?main=1&img=1&imm=1&w=1024&h=768&e=&EI=0")
	require.NoError(t, err)
	_, _ = readAndClose(resp)

	// A second request at the same size must not re-notify the resize.
	resp2, err := http.Get(base + "image?main=1&img=2&imm=1&w=1024&h=768&e=&EI=0")
	require.NoError(t, err)
	_, _ = readAndClose(resp2)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.resizes, 1)
	require.Equal(t, 1024, handler.resizes[0].w)
	require.Equal(t, 768, handler.resizes[0].h)
}

func TestTwoStepNavigationProtocol(t *testing.T) {
	w, handler, stop := testWindow(t, "127.0.0.1:18305")
	defer stop()

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	base := "http://127.0.0.1:18305" + w.PathPrefix()

	first, err := client.Get(base + "next/")
	require.NoError(t, err)
	_, _ = readAndClose(first)
	require.Equal(t, http.StatusOK, first.StatusCode)
	require.Equal(t, 0, len(handler.navigations))

	second, err := client.Get(base + "next/")
	require.NoError(t, err)
	_, _ = readAndClose(second)
	require.Equal(t, http.StatusSeeOther, second.StatusCode)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Equal(t, []int{1}, handler.navigations)
}

func TestCloseRequestNotifiesHandlerOnce(t *testing.T) {
	w, handler, stop := testWindow(t, "127.0.0.1:18306")
	defer stop()

	base := "http://127.0.0.1:18306" + w.PathPrefix()
	mainResp, err := http.Get(base)
	require.NoError(t, err)
	_, _ = readAndClose(mainResp)

	resp, err := http.Get(base + "close/1")
	require.NoError(t, err)
	_, _ = readAndClose(resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		return handler.closeCount() == 1
	}, time.Second, 5*time.Millisecond)

	// A further request against the now-closed window gets a 400, never a
	// second OnWindowClose.
	resp2, err := http.Get(base + "close/1")
	require.NoError(t, err)
	_, _ = readAndClose(resp2)
	require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
	require.Equal(t, 1, handler.closeCount())
}

func readAndClose(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := resp.Body.Read(tmp)
		buf = append(buf, tmp[:n]...)
		if err != nil {
			break
		}
	}
	return buf, nil
}
