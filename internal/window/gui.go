package window

// renderUploadModeGUI dims the frame and draws a flat cancel-button-shaped
// rectangle in the bottom-right corner while a Window is in file-upload
// mode, mirroring renderUploadModeGUI in gui.cpp. data is a BGRX buffer with
// no extra pitch (length 4*width*height).
func renderUploadModeGUI(data []byte, width, height int) {
	for i := 0; i+3 < len(data); i += 4 {
		data[i+0] = byte(int(data[i+0]) * 2 / 3)
		data[i+1] = byte(int(data[i+1]) * 2 / 3)
		data[i+2] = byte(int(data[i+2]) * 2 / 3)
	}

	bx0, by0, bx1, by1 := uploadCancelButtonRect(width, height)
	for y := by0; y < by1; y++ {
		for x := bx0; x < bx1; x++ {
			i := 4 * (y*width + x)
			data[i+0] = 200
			data[i+1] = 200
			data[i+2] = 200
		}
	}
}

const uploadCancelButtonMargin = 8
const uploadCancelButtonSize = 24

// uploadCancelButtonRect returns the pixel rectangle of the cancel button
// drawn by renderUploadModeGUI, used both to draw it and to hit-test clicks
// against it (isOverUploadModeCancelButton in gui.cpp).
func uploadCancelButtonRect(width, height int) (x0, y0, x1, y1 int) {
	x1 = width - uploadCancelButtonMargin
	x0 = x1 - uploadCancelButtonSize
	y1 = height - uploadCancelButtonMargin
	y0 = y1 - uploadCancelButtonSize
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	return
}

// isOverUploadModeCancelButton reports whether (x, y) lands on the cancel
// button drawn over the dimmed frame while in upload mode.
func isOverUploadModeCancelButton(x, y, width, height int) bool {
	x0, y0, x1, y1 := uploadCancelButtonRect(width, height)
	return x >= x0 && x < x1 && y >= y0 && y < y1
}
