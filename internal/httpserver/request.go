package httpserver

import (
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
)

// Request wraps one HTTP exchange, handed from an HTTP worker goroutine to
// the API thread and back. It mirrors HTTPRequest from http.hpp: method,
// path, user agent, lazily-parsed form parameters, optional HTTP Basic
// credentials, and a one-shot response slot. A Request that is dropped
// without SendResponse having been called logs a warning and releases its
// worker with a 500, matching the destructor behavior described in
// spec.md §3 and §7.
type Request struct {
	Method    string
	Path      string
	UserAgent string
	RemoteIP  string

	httpReq *http.Request

	formOnce sync.Once
	form     url.Values
	formErr  error

	respCh   chan func(http.ResponseWriter)
	sendOnce sync.Once
	sent     bool
	mu       sync.Mutex
}

func newRequest(r *http.Request) *Request {
	return &Request{
		Method:    r.Method,
		Path:      r.URL.Path,
		UserAgent: r.UserAgent(),
		RemoteIP:  r.RemoteAddr,
		httpReq:   r,
		respCh:    make(chan func(http.ResponseWriter), 1),
	}
}

// FormValue returns a POST/GET parameter, lazily parsing the request body
// the first time it is needed (mirrors HTTPRequest's lazy form parsing for
// POST requests).
func (req *Request) FormValue(key string) string {
	req.formOnce.Do(func() {
		req.formErr = req.httpReq.ParseForm()
		req.form = req.httpReq.Form
	})
	if req.formErr != nil {
		return ""
	}
	return req.form.Get(key)
}

// Query returns a URL query parameter without touching the body.
func (req *Request) Query(key string) string {
	return req.httpReq.URL.Query().Get(key)
}

// MultipartFile returns the first file attached under the given form field
// name for a multipart/form-data POST (used by the file-upload endpoint).
func (req *Request) MultipartFile(field string, maxMemory int64) (io.ReadCloser, string, error) {
	if err := req.httpReq.ParseMultipartForm(maxMemory); err != nil {
		return nil, "", err
	}
	file, header, err := req.httpReq.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	return file, header.Filename, nil
}

// BasicAuth returns the HTTP Basic credentials supplied with the request,
// if any.
func (req *Request) BasicAuth() (user, pass string, ok bool) {
	return req.httpReq.BasicAuth()
}

// SendResponse fulfills the request exactly once: status is the HTTP status
// code, contentType the MIME type, contentLength the exact byte count that
// writeBody will write, and writeBody the producer invoked on the original
// HTTP worker goroutine. Calling SendResponse more than once is a
// programming error.
func (req *Request) SendResponse(status int, contentType string, contentLength int64, writeBody func(io.Writer)) {
	req.SendResponseHeaders(status, contentType, contentLength, nil, writeBody)
}

// SendResponseHeaders is SendResponse plus extra response headers (such as
// Content-Disposition for a download), set before WriteHeader is called.
func (req *Request) SendResponseHeaders(status int, contentType string, contentLength int64, extraHeaders map[string]string, writeBody func(io.Writer)) {
	req.deliver(func(w http.ResponseWriter) {
		h := w.Header()
		h.Set("Content-Type", contentType)
		if contentLength >= 0 {
			h.Set("Content-Length", itoa(contentLength))
		}
		for k, v := range extraHeaders {
			h.Set(k, v)
		}
		w.WriteHeader(status)
		writeBody(w)
	})
}

// SendRedirect sends a 3xx redirect to location.
func (req *Request) SendRedirect(status int, location string) {
	req.deliver(func(w http.ResponseWriter) {
		w.Header().Set("Location", location)
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(status)
	})
}

// SendTextError sends a plain-text error body with the given status,
// matching the request-level error taxonomy in spec.md §7.
func (req *Request) SendTextError(status int, msg string) {
	req.deliver(func(w http.ResponseWriter) {
		body := []byte(msg)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", itoa(int64(len(body))))
		w.WriteHeader(status)
		_, _ = w.Write(body)
	})
}

// SendHTML sends a complete HTML document with no-cache headers, matching
// the "pages marked no-cache" rule in spec.md §6.
func (req *Request) SendHTML(status int, body []byte) {
	req.deliver(func(w http.ResponseWriter) {
		h := w.Header()
		h.Set("Content-Type", "text/html; charset=utf-8")
		h.Set("Content-Length", itoa(int64(len(body))))
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		w.WriteHeader(status)
		_, _ = w.Write(body)
	})
}

func (req *Request) deliver(producer func(http.ResponseWriter)) {
	req.mu.Lock()
	if req.sent {
		req.mu.Unlock()
		corelog.Panic("httpserver: Request responded to more than once")
	}
	req.sent = true
	req.mu.Unlock()

	req.sendOnce.Do(func() {
		req.respCh <- producer
	})
}

// releaseWithFallback is called by the server when a Request is never
// responded to (e.g. it was dropped by the core without a SendResponse
// call). It logs a warning and releases the waiting worker with a 500,
// matching the "destruction without sending a response" rule in spec.md §3.
func (req *Request) releaseWithFallback() {
	req.mu.Lock()
	already := req.sent
	req.mu.Unlock()
	if already {
		return
	}

	corelog.Warning("httpserver: request to ", req.Path, " destroyed without a response; sending 500")
	req.SendTextError(http.StatusInternalServerError, "internal error")
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
