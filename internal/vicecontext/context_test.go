package vicecontext_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/vicecontext"
	"github.com/ttalvitie/retrojsvice/internal/windowmanager"
)

// stubHost is a minimal windowmanager.EventHandler that hands out
// sequential handles and never denies creation.
type stubHost struct {
	mu         sync.Mutex
	nextHandle uint64
}

func newStubHost() *stubHost { return &stubHost{nextHandle: 1} }

func (h *stubHost) OnCreateWindowRequest() windowmanager.CreateResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	handle := h.nextHandle
	h.nextHandle++
	return windowmanager.CreateResult{Handle: handle}
}

func (h *stubHost) OnCloseWindow(handle uint64) {}
func (h *stubHost) OnFetchImage(handle uint64) (data []byte, width, height, pitch int) {
	return []byte{0, 0, 0, 0}, 1, 1, 1
}
func (h *stubHost) OnResizeWindow(handle uint64, width, height int)    {}
func (h *stubHost) OnMouseDown(handle uint64, x, y, button int)        {}
func (h *stubHost) OnMouseUp(handle uint64, x, y, button int)          {}
func (h *stubHost) OnMouseMove(handle uint64, x, y int)                {}
func (h *stubHost) OnMouseDoubleClick(handle uint64, x, y, button int) {}
func (h *stubHost) OnMouseWheel(handle uint64, x, y, delta int)        {}
func (h *stubHost) OnMouseLeave(handle uint64, x, y int)               {}
func (h *stubHost) OnKeyDown(handle uint64, key int)                   {}
func (h *stubHost) OnKeyUp(handle uint64, key int)                     {}
func (h *stubHost) OnLoseFocus(handle uint64)                          {}
func (h *stubHost) OnNavigate(handle uint64, direction int)            {}
func (h *stubHost) OnUploadFile(handle uint64, name, path string)      {}
func (h *stubHost) OnCancelFileUpload(handle uint64)                   {}

// pump repeatedly calls PumpEvents in the background until stop is closed,
// standing in for the host program's own event loop reacting to
// OnNeedsRunTasks (not modeled as a direct callback at this layer).
func pump(ctx *vicecontext.Context, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(2 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				ctx.PumpEvents()
			}
		}
	}()
}

func TestInitRejectsInvalidOptions(t *testing.T) {
	_, err := vicecontext.Init([][2]string{{"bogus", "x"}}, newStubHost(), "test")
	require.Error(t, err)
}

func TestStartServesNewWindowRequests(t *testing.T) {
	ctx, err := vicecontext.Init([][2]string{{"http-listen-addr", "127.0.0.1:18601"}}, newStubHost(), "test")
	require.NoError(t, err)

	require.NoError(t, ctx.Start(vicecontext.Callbacks{}))

	stop := make(chan struct{})
	pump(ctx, stop)
	defer close(stop)

	time.Sleep(30 * time.Millisecond)

	resp, err := (&http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}).Get("http://127.0.0.1:18601/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx.Shutdown()
}

func TestShutdownInvokesCompletionCallback(t *testing.T) {
	ctx, err := vicecontext.Init([][2]string{{"http-listen-addr", "127.0.0.1:18602"}}, newStubHost(), "test")
	require.NoError(t, err)
	require.NoError(t, ctx.Start(vicecontext.Callbacks{}))

	stop := make(chan struct{})
	pump(ctx, stop)
	defer close(stop)
	time.Sleep(20 * time.Millisecond)

	completed := make(chan struct{})
	ctx2, err := vicecontext.Init([][2]string{{"http-listen-addr", "127.0.0.1:18603"}}, newStubHost(), "test")
	require.NoError(t, err)
	require.NoError(t, ctx2.Start(vicecontext.Callbacks{
		OnShutdownComplete: func() { close(completed) },
	}))
	pump(ctx2, stop)
	time.Sleep(20 * time.Millisecond)

	ctx2.Shutdown()
	require.Eventually(t, func() bool {
		select {
		case <-completed:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestDoubleShutdownPanics(t *testing.T) {
	ctx, err := vicecontext.Init([][2]string{{"http-listen-addr", "127.0.0.1:18604"}}, newStubHost(), "test")
	require.NoError(t, err)
	require.NoError(t, ctx.Start(vicecontext.Callbacks{}))

	stop := make(chan struct{})
	pump(ctx, stop)
	defer close(stop)
	time.Sleep(20 * time.Millisecond)

	ctx.Shutdown()
	require.Panics(t, func() { ctx.Shutdown() })
}

func TestHTTPServerOption(t *testing.T) {
	// Exercises that Options flow through to httpserver.Options by probing
	// basic auth rejection end to end.
	ctx, err := vicecontext.Init([][2]string{
		{"http-listen-addr", "127.0.0.1:18605"},
		{"http-auth", "alice:secret"},
	}, newStubHost(), "test")
	require.NoError(t, err)
	require.NoError(t, ctx.Start(vicecontext.Callbacks{}))

	stop := make(chan struct{})
	pump(ctx, stop)
	defer close(stop)
	time.Sleep(30 * time.Millisecond)

	resp, err := http.Get("http://127.0.0.1:18605/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, "http://127.0.0.1:18605/", nil)
	require.NoError(t, err)
	req.SetBasicAuth("alice", "secret")
	resp2, err := (&http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}).Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	ctx.Shutdown()
}
