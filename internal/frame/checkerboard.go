package frame

// Checkerboard is a deterministic test double for Source: it produces a
// checkerboard pattern of the requested size. It never fails and is used by
// internal/testutil-backed tests and the demo binary in place of a real
// embedded browser.
type Checkerboard struct {
	Width, Height int
	Square        int
}

// NewCheckerboard returns a Checkerboard source of the given size. Square
// defaults to 16 pixels if zero or negative.
func NewCheckerboard(width, height, square int) *Checkerboard {
	if square <= 0 {
		square = 16
	}
	return &Checkerboard{Width: width, Height: height, Square: square}
}

// Fetch implements Source.
func (c *Checkerboard) Fetch() (data []byte, width, height, pitch int) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}

	buf := make([]byte, 4*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dark := ((x/c.Square)+(y/c.Square))%2 == 0
			var v byte = 255
			if dark {
				v = 64
			}
			i := 4 * (y*w + x)
			buf[i+0] = v
			buf[i+1] = v
			buf[i+2] = v
			buf[i+3] = 0
		}
	}
	return buf, w, h, w
}
