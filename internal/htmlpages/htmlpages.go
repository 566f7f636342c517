// Package htmlpages renders the small set of legacy-browser-compatible HTML
// documents the core serves: the new-window redirect, the main session
// page, the two-step prev/next navigation decoys, the file-upload modal
// iframe, and the clipboard exchange dialog. Grounded on html.hpp's
// NewWindowHTMLData/MainHTMLData/PreMainHTMLData/PrePrevHTMLData and
// window.hpp's use of them. Every page but the main session page avoids
// client-side script entirely, since the target browsers predate reliable
// JavaScript support; the main page is the one exception, needing a tiny
// inline script to hand the snake-oil cipher key to the client the same way
// window.hpp's writeMainHTML does.
package htmlpages

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

func escape(s string) string {
	return html.EscapeString(s)
}

const docHeader = `<!DOCTYPE html>
<html>
<head>
<meta http-equiv="Content-Type" content="text/html; charset=utf-8">
`

// NewWindowData carries the fields needed to bounce a freshly created
// session's first request to its path-prefixed URL.
type NewWindowData struct {
	RedirectURL string
}

// NewWindow renders the page served in response to the initial GET / that
// allocated a new Window. A meta-refresh plus a plain link stand in for the
// 3xx redirect in case the legacy client's HTTP stack mishandles it.
func NewWindow(d NewWindowData) []byte {
	var b strings.Builder
	b.WriteString(docHeader)
	fmt.Fprintf(&b, `<meta http-equiv="refresh" content="0;url=%s">`, escape(d.RedirectURL))
	b.WriteString("<title>Browservice</title></head><body>")
	fmt.Fprintf(&b, `<p>Loading... If nothing happens, <a href="%s">click here</a>.</p>`, escape(d.RedirectURL))
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// MainData carries the fields embedded into the main session page: the
// image/event endpoint parameters and the two secrets the legacy client
// must echo back on every subsequent request.
type MainData struct {
	PathPrefix    string
	MainIdx       uint64
	CSRFToken     string
	SnakeOilKey   string // hex-encoded for safe embedding in a URL/form field
	Width, Height int
	NeedsClipboardButton bool
	QualityOptions       []string
	CurrentQualityIdx    int
}

// MainPage renders the main session page: an <img> tag pointing at the
// image endpoint (seeded with img=1, imm=1 so the client fetches the first
// frame immediately), a close button, and optional quality/clipboard
// controls gated by the fields above.
func MainPage(d MainData) []byte {
	imgURL := fmt.Sprintf(
		"%simage?main=%d&img=1&imm=1&w=%d&h=%d&e=&EI=0",
		d.PathPrefix, d.MainIdx, d.Width, d.Height,
	)

	var b strings.Builder
	b.WriteString(docHeader)
	b.WriteString("<title>Browservice</title></head><body style=\"margin:0\">")
	fmt.Fprintf(&b, "<script>var snakeOilKey = %q;</script>", d.SnakeOilKey)
	fmt.Fprintf(&b, `<img id="bsimg" src="%s" width="%d" height="%d">`, escape(imgURL), d.Width, d.Height)

	fmt.Fprintf(&b, `
<form method="GET" action="%sclose/%d">
<input type="hidden" name="csrf" value="%s">
<input type="submit" value="Close">
</form>`, d.PathPrefix, d.MainIdx, escape(d.CSRFToken))

	fmt.Fprintf(&b, `
<form method="GET" action="%sprev/"><input type="submit" value="Back"></form>
<form method="GET" action="%snext/"><input type="submit" value="Forward"></form>`,
		d.PathPrefix, d.PathPrefix)

	if d.NeedsClipboardButton {
		fmt.Fprintf(&b, `
<form method="GET" action="%sclipboard"><input type="submit" value="Clipboard"></form>`, d.PathPrefix)
	}

	if len(d.QualityOptions) > 0 {
		b.WriteString(`<form method="GET" action=""><select name="q">`)
		for i, opt := range d.QualityOptions {
			sel := ""
			if i == d.CurrentQualityIdx {
				sel = " selected"
			}
			fmt.Fprintf(&b, `<option value="%d"%s>%s</option>`, i, sel, escape(opt))
		}
		b.WriteString(`</select><input type="submit" value="Set quality"></form>`)
	}

	b.WriteString("</body></html>")
	return []byte(b.String())
}

// PreNav renders the decoy page served on the first of the two required
// visits to /prev/ or /next/: it performs no navigation, only recording
// that the decoy was seen, matching the two-step protocol in spec.md §4.5.
func PreNav(pathPrefix string, forward bool) []byte {
	label := "Back"
	if forward {
		label = "Forward"
	}
	path := "prev/"
	if forward {
		path = "next/"
	}

	var b strings.Builder
	b.WriteString(docHeader)
	fmt.Fprintf(&b, "<title>%s</title></head><body>", label)
	fmt.Fprintf(&b, `<form method="GET" action="%s%s"><input type="submit" value="Confirm %s"></form>`,
		escape(pathPrefix), path, strings.ToLower(label))
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// UploadModal renders the iframe content shown while a Window is in
// file-upload mode: a file picker posting to /upload/<mainIdx>.
func UploadModal(pathPrefix string, mainIdx uint64) []byte {
	var b strings.Builder
	b.WriteString(docHeader)
	b.WriteString("<title>Upload file</title></head><body>")
	fmt.Fprintf(&b, `
<form method="POST" action="%supload/%d" enctype="multipart/form-data">
<input type="file" name="file">
<input type="submit" value="Upload">
</form>`, pathPrefix, mainIdx)
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// ClipboardDialog renders the clipboard exchange page: a textarea seeded
// with the current clipboard text (for copy-out) and a form that posts
// edited text back (for paste-in), guarded by a short-lived CSRF token.
func ClipboardDialog(csrfToken, text string) []byte {
	var b strings.Builder
	b.WriteString(docHeader)
	b.WriteString("<title>Clipboard</title></head><body>")
	fmt.Fprintf(&b, `
<form method="POST" action="clipboard">
<input type="hidden" name="csrf" value="%s">
<textarea name="text" rows="10" cols="60">%s</textarea>
<input type="submit" value="Set clipboard">
</form>`, escape(csrfToken), escape(text))
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// DownloadIframe renders the small HTML page served as an iframe body that
// points the legacy client at the cacheable download URL, prompting its
// native save-file dialog. Mirrors writeDownloadIframeHTML's role in
// html.hpp.
func DownloadIframe(pathPrefix string, downloadIdx uint64, fileName string) []byte {
	url := fmt.Sprintf("%sdownload/%d", pathPrefix, downloadIdx)

	var b strings.Builder
	b.WriteString(docHeader)
	b.WriteString("<title>Download</title></head><body>")
	fmt.Fprintf(&b, `<p><a href="%s">%s</a> is ready to download.</p>`, escape(url), escape(fileName))
	b.WriteString("</body></html>")
	return []byte(b.String())
}

// DownloadFileName renders the Content-Disposition header value for a
// completed download, quoting the filename per RFC 6266.
func DownloadFileName(name string) string {
	return `attachment; filename="` + strings.ReplaceAll(name, `"`, `'`) + `"`
}

// FormatQualityIdx renders a quality selector's index as the string form
// used in its <option value="…">, kept as a named helper so MainPage and
// the quality-change handler agree on the encoding.
func FormatQualityIdx(i int) string {
	return strconv.Itoa(i)
}
