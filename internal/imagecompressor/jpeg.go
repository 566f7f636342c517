package imagecompressor

import (
	"bytes"
	"image"
	"image/jpeg"
)

// encodeJPEG compresses a BGRX buffer (width x height, row pitch == width,
// as produced by padToSignalSize) at the given quality (1..100). Mirrors
// compressJPEG_ in image_compressor.cpp / jpeg.hpp. Quality <= 90 favors the
// stdlib's faster integer DCT path (the library always uses an integer DCT;
// there is no separate "fast" mode to select in image/jpeg, so the
// distinction from the original's libjpeg-turbo DCT_IFAST/DCT_ISLOW choice
// collapses into a single code path here — see DESIGN.md).
func encodeJPEG(bgrx []byte, width, height, quality int) ([]byte, error) {
	img := bgrxToRGBA(bgrx, width, height)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func bgrxToRGBA(bgrx []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		b := bgrx[4*i+0]
		g := bgrx[4*i+1]
		r := bgrx[4*i+2]
		img.Pix[4*i+0] = r
		img.Pix[4*i+1] = g
		img.Pix[4*i+2] = b
		img.Pix[4*i+3] = 255
	}
	return img
}

// whiteJPEGPixel is a 1x1 white JPEG served when a frame cannot be fetched,
// matching serveWhiteJPEGPixel in image_compressor.cpp byte for byte so the
// fallback is provably valid JPEG without depending on the encoder at
// startup.
var whiteJPEGPixel = []byte{
	255, 216, 255, 224, 0, 16, 74, 70, 73, 70, 0, 1, 1, 1, 0, 72, 0, 72,
	0, 0, 255, 219, 0, 67, 0, 3, 2, 2, 3, 2, 2, 3, 3, 3, 3, 4, 3, 3, 4,
	5, 8, 5, 5, 4, 4, 5, 10, 7, 7, 6, 8, 12, 10, 12, 12, 11, 10, 11, 11,
	13, 14, 18, 16, 13, 14, 17, 14, 11, 11, 16, 22, 16, 17, 19, 20, 21,
	21, 21, 12, 15, 23, 24, 22, 20, 24, 18, 20, 21, 20, 255, 219, 0, 67,
	1, 3, 4, 4, 5, 4, 5, 9, 5, 5, 9, 20, 13, 11, 13, 20, 20, 20, 20, 20,
	20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20,
	20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20,
	20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 20, 255, 192, 0, 17, 8, 0,
	1, 0, 1, 3, 1, 17, 0, 2, 17, 1, 3, 17, 1, 255, 196, 0, 20, 0, 1, 0,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 9, 255, 196, 0, 20, 16, 1,
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 255, 196, 0, 20, 1,
	1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 255, 196, 0, 20,
	17, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 255, 218, 0,
	12, 3, 1, 0, 2, 17, 3, 17, 0, 63, 0, 84, 193, 255, 217,
}
