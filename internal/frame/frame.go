// Package frame defines the boundary between the core and the embedded
// browser engine that spec.md §1 names as an out-of-scope collaborator: the
// core only consumes raw BGRX frames through this interface and never
// drives a browser itself.
package frame

// Source supplies the latest rendered frame for a single Window. Fetch must
// write the frame into a fresh buffer and return it along with its
// dimensions and row pitch (in pixels); the returned slice must not be
// retained by the caller beyond the call (the caller copies what it needs
// before Fetch is invoked again), matching
// ImageCompressorEventHandler::onImageCompressorFetchImage's single-call
// contract in image_compressor.hpp.
//
// Pixel layout: for 0 <= y < height and 0 <= x < width,
// data[4*(y*pitch+x)+c] holds blue, green, red, and an unused byte for
// c = 0, 1, 2, 3 respectively (BGRX, matching the CEF/original source
// convention).
type Source interface {
	Fetch() (data []byte, width, height, pitch int)
}

// SourceFunc adapts a plain function to the Source interface.
type SourceFunc func() (data []byte, width, height, pitch int)

// Fetch implements Source.
func (f SourceFunc) Fetch() (data []byte, width, height, pitch int) { return f() }

// Overlay optionally post-processes a fetched frame buffer before
// compression — used by the Window to dim the view and draw the file-
// upload modal (the "GUI overlay" callback in spec.md §4.3). data is laid
// out exactly as in Source.Fetch, has length 4*width*height (no extra
// pitch), and may be mutated in place.
type Overlay interface {
	RenderGUI(data []byte, width, height int)
}

// OverlayFunc adapts a plain function to the Overlay interface.
type OverlayFunc func(data []byte, width, height int)

// RenderGUI implements Overlay.
func (f OverlayFunc) RenderGUI(data []byte, width, height int) { f(data, width, height) }

// NoOverlay never modifies the frame.
var NoOverlay Overlay = OverlayFunc(func([]byte, int, int) {})
