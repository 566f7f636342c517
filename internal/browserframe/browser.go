// Package browserframe implements the "embedded browser" collaborator that
// spec.md §1 deliberately leaves out of scope: a frame.Source backed by a
// real headless Chrome tab driven over the Chrome DevTools Protocol, usable
// as a drop-in alternative to frame.Checkerboard wherever a host program
// wants retrojsvice to actually bridge a browser instead of a synthetic
// test pattern. Grounded on the chromedp.NewExecAllocator / chromedp.NewContext
// / chromedp.Run lifecycle in capture.go, adapted from one-shot HAR capture
// to a long-lived tab that is repeatedly screenshotted and fed live input.
package browserframe

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
)

// Tab drives a single headless Chrome tab and exposes it as a frame.Source
// for a retrojsvice Window. The zero value is not usable; construct with
// Open.
type Tab struct {
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	tabCtx      context.Context

	mu            sync.Mutex
	width, height int
	lastFrame     []byte
}

// Open launches a headless Chrome process (one per Tab, matching capture.go's
// per-call chromedp.NewExecAllocator rather than a shared browser pool) and
// navigates it to url at the given viewport size.
func Open(ctx context.Context, url string, width, height int) (*Tab, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
		)...,
	)

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...any) {}),
		chromedp.WithErrorf(func(string, ...any) {}),
	)

	if err := chromedp.Run(tabCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(url),
	); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("browserframe: failed to open %q: %w", url, err)
	}

	return &Tab{
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		tabCtx:      tabCtx,
		width:       width,
		height:      height,
	}, nil
}

// Fetch implements frame.Source: it captures the tab's current rendering as
// a PNG screenshot and converts it to the BGRX layout the image compressor
// expects. On a transient screenshot failure, the previously captured frame
// is returned rather than an empty one, since frame.Source.Fetch has no
// error return.
func (t *Tab) Fetch() (data []byte, width, height, pitch int) {
	var buf []byte
	err := chromedp.Run(t.tabCtx, chromedp.CaptureScreenshot(&buf))
	if err != nil {
		corelog.Warning("browserframe: screenshot failed: ", err)
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.lastFrame, t.width, t.height, t.width
	}

	img, err := png.Decode(bytes.NewReader(buf))
	if err != nil {
		corelog.Warning("browserframe: failed to decode screenshot: ", err)
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.lastFrame, t.width, t.height, t.width
	}

	bgrx, w, h := toBGRX(img)

	t.mu.Lock()
	t.lastFrame, t.width, t.height = bgrx, w, h
	t.mu.Unlock()

	return bgrx, w, h, w
}

// toBGRX converts a decoded screenshot into the BGRX pixel layout documented
// in internal/frame, with no padding beyond the row width (pitch == width).
func toBGRX(img image.Image) (data []byte, width, height int) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	data = make([]byte, 4*width*height)

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			data[i+0] = byte(bl >> 8)
			data[i+1] = byte(g >> 8)
			data[i+2] = byte(r >> 8)
			data[i+3] = 0
			i += 4
		}
	}
	return data, width, height
}

// Resize changes the tab's emulated viewport, matching the resize half of
// window.EventHandler.OnWindowResize.
func (t *Tab) Resize(width, height int) {
	if err := chromedp.Run(t.tabCtx, chromedp.EmulateViewport(int64(width), int64(height))); err != nil {
		corelog.Warning("browserframe: resize failed: ", err)
		return
	}
	t.mu.Lock()
	t.width, t.height = width, height
	t.mu.Unlock()
}

// DispatchMouseMove, DispatchMouseButton and DispatchMouseWheel forward the
// legacy client's pointer events to the tab over CDP's Input domain — the
// inverse of chromedp's own action helpers, which only script a tab rather
// than relay another program's live input.
func (t *Tab) DispatchMouseMove(x, y int) {
	t.runInput(input.DispatchMouseEvent(input.MouseMoved, float64(x), float64(y)))
}

func (t *Tab) DispatchMouseButton(x, y, button int, down bool) {
	typ := input.MousePressed
	if !down {
		typ = input.MouseReleased
	}
	evt := input.DispatchMouseEvent(typ, float64(x), float64(y)).
		WithButton(mouseButtonName(button)).
		WithClickCount(1)
	t.runInput(evt)
}

func (t *Tab) DispatchMouseWheel(x, y, delta int) {
	evt := input.DispatchMouseEvent(input.MouseWheel, float64(x), float64(y)).
		WithDeltaY(float64(delta))
	t.runInput(evt)
}

// DispatchKey forwards a raw key code as a best-effort virtual key event;
// retrojsvice's wire protocol carries only the legacy client's raw key
// codes (see spec.md §4.5), so no full keyboard layout mapping is attempted.
func (t *Tab) DispatchKey(key int, down bool) {
	typ := input.KeyDown
	if !down {
		typ = input.KeyUp
	}
	evt := input.DispatchKeyEvent(typ).
		WithWindowsVirtualKeyCode(int64(key)).
		WithNativeVirtualKeyCode(int64(key))
	t.runInput(evt)
}

func (t *Tab) runInput(action chromedp.Action) {
	if err := chromedp.Run(t.tabCtx, action); err != nil {
		corelog.Warning("browserframe: input dispatch failed: ", err)
	}
}

func mouseButtonName(button int) input.MouseButton {
	switch button {
	case 1:
		return input.Middle
	case 2:
		return input.Right
	default:
		return input.Left
	}
}

// Close terminates the tab and its backing Chrome process.
func (t *Tab) Close() {
	t.cancelTab()
	t.cancelAlloc()
}
