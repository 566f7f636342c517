// Package imagecompressor implements component C3: per-Window image
// pipeline that fetches the latest frame, compresses it on a background
// goroutine, and serves it to at most one waiting HTTP request at a time.
// Grounded on image_compressor.hpp/.cpp.
package imagecompressor

import (
	"io"
	"time"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/frame"
	"github.com/ttalvitie/retrojsvice/internal/httpserver"
	"github.com/ttalvitie/retrojsvice/internal/taskqueue"
)

// DefaultSendTimeout is the long-poll timeout used by SendWait when no
// fresher frame becomes available first, matching spec.md §4.3.
const DefaultSendTimeout = 200 * time.Millisecond

// MinQuality and MaxQuality bound the valid quality range (quality.hpp).
// MaxQuality selects PNG; any lower value is a JPEG quality.
const (
	MinQuality = 10
	MaxQuality = 101
)

// compressedImage is a closure that writes a complete, already-compressed
// HTTP body to a Request, matching the CompressedImage typedef in
// image_compressor.hpp.
type compressedImage func(*httpserver.Request)

// Compressor is the image pipeline for a single Window.
type Compressor struct {
	queue   *taskqueue.Queue
	source  frame.Source
	overlay frame.Overlay

	sendTimeout time.Duration

	quality      int
	iframeSignal int
	cursorSignal int

	png *pngCompressor

	waitTag *taskqueue.DelayedTask

	compressedImg compressedImage

	fetchingStopped       bool
	imageDirty            bool
	compressedDirty       bool
	compressionInProgress bool
}

// New creates a Compressor for one Window. source supplies raw frames;
// overlay optionally post-processes them (the file-upload modal dimming);
// quality is 10..100 (JPEG) or 101 (PNG).
func New(queue *taskqueue.Queue, source frame.Source, overlay frame.Overlay, quality int) *Compressor {
	corelog.Require(quality >= 10 && quality <= 101, "imagecompressor: invalid initial quality ", quality)

	if overlay == nil {
		overlay = frame.NoOverlay
	}

	c := &Compressor{
		queue:         queue,
		source:        source,
		overlay:       overlay,
		sendTimeout:   DefaultSendTimeout,
		quality:       quality,
		iframeSignal:  IframeSignalFalse,
		cursorSignal:  CursorSignalNormal,
		png:           newPNGCompressor(),
		compressedImg: serveWhiteJPEGPixel,
	}
	return c
}

// SetSendTimeout overrides DefaultSendTimeout (used by tests).
func (c *Compressor) SetSendTimeout(d time.Duration) {
	c.sendTimeout = d
}

// Quality returns the currently configured quality.
func (c *Compressor) Quality() int { return c.quality }

// SetQuality updates the compression quality (10..100 JPEG, 101 PNG),
// treating a real change as a frame update.
func (c *Compressor) SetQuality(quality int) {
	corelog.Require(quality >= 10 && quality <= 101, "imagecompressor: invalid quality ", quality)
	if quality != c.quality {
		c.quality = quality
		c.NotifyUpdate()
	}
}

// SetIframeSignal updates the iframe-navigation signal bit (0 or 1).
func (c *Compressor) SetIframeSignal(signal int) {
	corelog.Require(signal >= 0 && signal < IframeSignalCount, "imagecompressor: invalid iframe signal")
	if signal != c.iframeSignal {
		c.iframeSignal = signal
		c.NotifyUpdate()
	}
}

// SetCursorSignal updates the cursor signal (0, 1 or 2).
func (c *Compressor) SetCursorSignal(signal int) {
	corelog.Require(signal >= 0 && signal < CursorSignalCount, "imagecompressor: invalid cursor signal")
	if signal != c.cursorSignal {
		c.cursorSignal = signal
		c.NotifyUpdate()
	}
}

// NotifyUpdate marks the current frame dirty and pumps the pipeline.
func (c *Compressor) NotifyUpdate() {
	c.imageDirty = true
	c.pump()
}

// SendNow flushes any parked waiter and immediately serves the latest
// compressed image to req.
func (c *Compressor) SendNow(req *httpserver.Request) {
	c.Flush()

	c.compressedImg(req)

	c.compressedDirty = false
	c.pump()
}

// SendWait serves req once a fresher compressed image is available, or
// after sendTimeout elapses, whichever comes first. Only one request may be
// parked at a time; a second SendWait/SendNow call supersedes the first.
func (c *Compressor) SendWait(req *httpserver.Request) {
	c.Flush()

	if c.compressedDirty {
		c.SendNow(req)
		return
	}

	c.waitTag = c.queue.PostDelayed(c.sendTimeout, func() {
		c.SendNow(req)
	})
}

// StopFetching ensures the frame source will never be invoked again.
func (c *Compressor) StopFetching() {
	c.fetchingStopped = true
}

// Flush expedites any parked waiter's timeout to fire immediately,
// releasing it with whatever image is currently available.
func (c *Compressor) Flush() {
	if c.waitTag != nil {
		c.waitTag.Expedite()
		c.waitTag = nil
	}
}

func (c *Compressor) fetchFrame() (data []byte, width, height int) {
	corelog.Require(!c.fetchingStopped, "imagecompressor: fetchFrame called after StopFetching")

	if c.source == nil {
		return []byte{255, 255, 255, 255}, 1, 1
	}

	raw, srcWidth, srcHeight, srcPitch := c.source.Fetch()
	corelog.Require(srcWidth > 0 && srcHeight > 0, "imagecompressor: frame source returned empty frame")

	if srcWidth > 16384 {
		srcWidth = 16384
	}
	if srcHeight > 16384 {
		srcHeight = 16384
	}

	dstWidth, dstHeight := extendForSignal(srcWidth, srcHeight, c.iframeSignal, c.cursorSignal)
	padded := padToSignalSize(raw, srcWidth, srcHeight, srcPitch, dstWidth, dstHeight)

	c.overlay.RenderGUI(padded, dstWidth, dstHeight)

	return padded, dstWidth, dstHeight
}

// pump implements the pump rule from spec.md §4.3: if not stopped, no
// compression in progress, the image is dirty, and the previous compressed
// image has not yet been consumed, fetch and dispatch a compression job to
// a background goroutine.
func (c *Compressor) pump() {
	if c.fetchingStopped || c.compressionInProgress || !c.imageDirty || c.compressedDirty {
		return
	}

	c.compressionInProgress = true
	c.imageDirty = false

	quality := c.quality
	data, width, height := c.fetchFrame()

	go func() {
		var img compressedImage
		if quality == 101 {
			img = c.compressToPNG(data, width, height)
		} else {
			img = c.compressToJPEG(data, width, height, quality)
		}

		c.queue.Post(func() {
			c.compressionInProgress = false
			c.compressedDirty = true
			c.compressedImg = img
			c.Flush()
		})
	}()
}

func (c *Compressor) compressToPNG(data []byte, width, height int) compressedImage {
	body := c.png.compress(data, width, height)
	return func(req *httpserver.Request) {
		req.SendResponse(200, "image/png", int64(len(body)), func(w io.Writer) {
			_, _ = w.Write(body)
		})
	}
}

func (c *Compressor) compressToJPEG(data []byte, width, height, quality int) compressedImage {
	body, err := encodeJPEG(data, width, height, quality)
	if err != nil {
		corelog.Panic("imagecompressor: JPEG encode failed on valid input: ", err)
	}
	return func(req *httpserver.Request) {
		req.SendResponse(200, "image/jpeg", int64(len(body)), func(w io.Writer) {
			_, _ = w.Write(body)
		})
	}
}

func serveWhiteJPEGPixel(req *httpserver.Request) {
	data := whiteJPEGPixel
	req.SendResponse(200, "image/jpeg", int64(len(data)), func(w io.Writer) {
		_, _ = w.Write(data)
	})
}
