package window

import (
	"strconv"
	"strings"

	"github.com/ttalvitie/retrojsvice/internal/imagecompressor"
)

// hasPNGSupport reports whether the client's user agent is known to render
// PNG images, matching quality.cpp's denylist of pre-PNG Windows 3.1/16-bit
// browsers.
func hasPNGSupport(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	return !strings.Contains(ua, "windows 3.1") &&
		!strings.Contains(ua, "win16") &&
		!strings.Contains(ua, "windows 16-bit")
}

// qualityOptions lists the selectable JPEG qualities in steps of 10, plus a
// trailing "PNG" entry when allowed, matching quality_selector.cpp's menu.
func qualityOptions(allowPNG bool) []string {
	opts := make([]string, 0, 10)
	for q := 100; q >= imagecompressor.MinQuality; q -= 10 {
		opts = append(opts, strconv.Itoa(q))
	}
	if allowPNG {
		opts = append(opts, "PNG")
	}
	return opts
}

func qualityAtIdx(idx int, allowPNG bool) (int, bool) {
	opts := qualityOptions(allowPNG)
	if idx < 0 || idx >= len(opts) {
		return 0, false
	}
	if opts[idx] == "PNG" {
		return imagecompressor.MaxQuality, true
	}
	q, err := strconv.Atoi(opts[idx])
	return q, err == nil
}

func qualityToIdx(quality int, allowPNG bool) int {
	opts := qualityOptions(allowPNG)
	for i, opt := range opts {
		if opt == "PNG" && quality == imagecompressor.MaxQuality {
			return i
		}
		if q, err := strconv.Atoi(opt); err == nil && q == quality {
			return i
		}
	}
	return 0
}

// handleQualityQuery applies a "q=<idx>" query parameter found on a main
// page request, ignoring it silently if absent or out of range (quality
// changes are a convenience, not a protocol requirement).
func (w *Window) handleQualityQuery(idxStr string) {
	if idxStr == "" {
		return
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil {
		return
	}
	quality, ok := qualityAtIdx(idx, w.allowPNG)
	if !ok {
		return
	}
	w.compressor.SetQuality(quality)
}

// QualitySelectorQuery returns the selectable quality labels and the index
// of the currently active one, matching
// WindowManager::qualitySelectorQuery/Window::qualitySelectorQuery.
func (w *Window) QualitySelectorQuery() (options []string, currentIdx int) {
	options = qualityOptions(w.allowPNG)
	currentIdx = qualityToIdx(w.compressor.Quality(), w.allowPNG)
	return options, currentIdx
}

// QualityChanged applies a quality change requested directly by the host
// program (as opposed to the client-facing "q=" query parameter), matching
// Window::qualityChanged. Out-of-range indices are ignored.
func (w *Window) QualityChanged(qualityIdx int) {
	quality, ok := qualityAtIdx(qualityIdx, w.allowPNG)
	if !ok {
		return
	}
	w.compressor.SetQuality(quality)
}
