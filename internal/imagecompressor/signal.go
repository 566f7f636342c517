package imagecompressor

// Signal encoding constants, mirroring ImageCompressor::IframeSignal* and
// CursorSignal* in image_compressor.hpp. The non-scripted legacy client
// infers page-navigation and cursor state purely from the served image's
// dimensions modulo these small constants.
const (
	IframeSignalTrue  = 0
	IframeSignalFalse = 1
	IframeSignalCount = 2

	CursorSignalHand   = 0
	CursorSignalNormal = 1
	CursorSignalText   = 2
	CursorSignalCount  = 3
)

// extendForSignal grows w and h by 0 or more pixels so that
// w % IframeSignalCount == iframeSignal and h % CursorSignalCount ==
// cursorSignal, matching fetchImage_'s while loops in image_compressor.cpp.
func extendForSignal(w, h, iframeSignal, cursorSignal int) (int, int) {
	for w%IframeSignalCount != iframeSignal {
		w++
	}
	for h%CursorSignalCount != cursorSignal {
		h++
	}
	return w, h
}

// padToSignalSize copies a BGRX srcWidth x srcHeight image (row pitch
// srcPitch, in pixels) into a freshly-allocated BGRX buffer of size
// dstWidth x dstHeight, padding any extra columns/rows with pure white
// (255,255,255) pixels exactly as fetchImage_ does.
func padToSignalSize(src []byte, srcWidth, srcHeight, srcPitch, dstWidth, dstHeight int) []byte {
	dst := make([]byte, 4*dstWidth*dstHeight)
	for i := range dst {
		dst[i] = 255
	}

	copyWidth := srcWidth
	if copyWidth > dstWidth {
		copyWidth = dstWidth
	}
	copyHeight := srcHeight
	if copyHeight > dstHeight {
		copyHeight = dstHeight
	}

	for y := 0; y < copyHeight; y++ {
		srcOff := 4 * y * srcPitch
		dstOff := 4 * y * dstWidth
		copy(dst[dstOff:dstOff+4*copyWidth], src[srcOff:srcOff+4*copyWidth])
	}

	return dst
}
