package browserframe

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToBGRXConvertsPixelOrder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	img.Set(1, 0, color.RGBA{R: 40, G: 50, B: 60, A: 255})

	data, width, height := toBGRX(img)

	require.Equal(t, 2, width)
	require.Equal(t, 1, height)
	require.Len(t, data, 4*width*height)

	require.Equal(t, []byte{30, 20, 10, 0}, data[0:4])
	require.Equal(t, []byte{60, 50, 40, 0}, data[4:8])
}

func TestMouseButtonNameMapping(t *testing.T) {
	require.Equal(t, "left", string(mouseButtonName(0)))
	require.Equal(t, "middle", string(mouseButtonName(1)))
	require.Equal(t, "right", string(mouseButtonName(2)))
}
