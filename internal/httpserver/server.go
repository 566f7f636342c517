// Package httpserver implements component C2: it accepts HTTP requests on
// a worker pool, wraps each in a Request, and hands it to the API thread
// via a supplied handler, blocking the worker goroutine on a one-shot
// channel until the API thread produces a response. Grounded on
// http.hpp/.cpp, realized with net/http instead of the original's embedded
// HTTP library.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
)

// Handler is invoked once per incoming request, on its own worker
// goroutine, and is expected to eventually call exactly one of Request's
// Send* methods — possibly asynchronously, by posting the request onward to
// the API thread.
type Handler func(*Request)

// Options configures Start.
type Options struct {
	ListenAddr string
	MaxThreads int

	// AuthUser/AuthPass enable HTTP Basic auth when AuthUser is non-empty.
	AuthUser string
	AuthPass string

	// NewWindowRateLimit, when > 0, caps the rate (requests/sec) at which
	// GET / (new-window creation) requests are accepted per remote IP; 0
	// disables the limiter. This is hardening the original C++ source does
	// not have (see SPEC_FULL.md's DOMAIN STACK section).
	NewWindowRateLimit float64

	Handler Handler
}

// Server is the running HTTP listener for a single Context.
type Server struct {
	opts Options

	httpServer *http.Server
	listener   net.Listener

	sem chan struct{}

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	wg sync.WaitGroup

	shutdownOnce sync.Once
}

// Start binds listenAddr and begins serving in the background. It returns
// immediately; use Shutdown to stop.
func Start(opts Options) (*Server, error) {
	if opts.MaxThreads <= 0 {
		opts.MaxThreads = 100
	}

	s := &Server{
		opts:     opts,
		sem:      make(chan struct{}, opts.MaxThreads),
		limiters: make(map[string]*rate.Limiter),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveHTTP)

	s.httpServer = &http.Server{
		Addr:    opts.ListenAddr,
		Handler: mux,
	}

	ln, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, err
	}
	s.listener = ln

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := s.httpServer.Serve(ln)
		if err != nil && err != http.ErrServerClosed {
			corelog.Error("httpserver: Serve exited with error: ", err)
		}
	}()

	return s, nil
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case s.sem <- struct{}{}:
	default:
		http.Error(w, "503 too many concurrent requests", http.StatusServiceUnavailable)
		return
	}
	defer func() { <-s.sem }()

	if !checkAuth(r, s.opts.AuthUser, s.opts.AuthPass) {
		writeAuthChallenge(w)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/" && s.opts.NewWindowRateLimit > 0 {
		if !s.allowNewWindow(r.RemoteAddr) {
			http.Error(w, "429 too many requests", http.StatusTooManyRequests)
			return
		}
	}

	req := newRequest(r)

	if s.opts.Handler == nil {
		corelog.Panic("httpserver: Start called with a nil Handler")
	}
	s.opts.Handler(req)

	select {
	case producer := <-req.respCh:
		producer(w)
	case <-time.After(30 * time.Second):
		// The API thread never produced a response; this should only
		// happen under a programming error elsewhere in the core, but we
		// must not hang the worker goroutine forever.
		req.releaseWithFallback()
		select {
		case producer := <-req.respCh:
			producer(w)
		default:
		}
	}
}

func (s *Server) allowNewWindow(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	s.limiterMu.Lock()
	lim, ok := s.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.opts.NewWindowRateLimit), 1)
		s.limiters[host] = lim
	}
	s.limiterMu.Unlock()

	return lim.Allow()
}

// Shutdown stops accepting new connections, waits up to 1 second for
// in-flight requests to drain, then force-closes the remainder, matching
// spec.md §4.2. After Shutdown returns, no handler will be invoked again.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			_ = s.httpServer.Close()
		}
		s.wg.Wait()
	})
}
