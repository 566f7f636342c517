// Package devchannel implements the optional, off-by-default introspection
// channel from SPEC_FULL.md's DOMAIN STACK (--debug-ws-addr): a websocket
// endpoint that streams Window lifecycle and frame-pump events as JSON for
// external tooling. It never sits on the legacy client's protocol path —
// the HTTP bridge in internal/httpserver and internal/windowmanager never
// imports this package — so enabling it cannot change retrojsvice's
// HTTP-only wire contract. Upgrade handling is grounded on the pack's
// gorilla/websocket usage (see getAxUpgrader in the teranos-QNTX server
// package) adapted to a single fan-out broadcaster instead of a
// per-client graph view.
package devchannel

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
)

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	maxQueuedEvent = 64
)

// Event is one JSON line broadcast to every connected client.
type Event struct {
	Kind   string `json:"kind"`
	Window uint64 `json:"window,omitempty"`
	Detail string `json:"detail,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Channel accepts websocket connections and fans every Publish call out to
// all of them. The zero value is not usable; construct with New.
type Channel struct {
	mu      sync.Mutex
	clients map[*client]struct{}

	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// New starts listening on addr and returns a Channel ready to Publish to.
// Connection handling runs on its own goroutines; Publish may be called
// from the API thread without blocking on slow clients (a client whose send
// buffer fills is dropped rather than allowed to stall the core).
func New(addr string) (*Channel, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	c := &Channel{
		clients: make(map[*client]struct{}),
		listener: ln,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", c.serveWS)
	c.httpServer = &http.Server{Handler: mux}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			corelog.Error("devchannel: Serve exited with error: ", err)
		}
	}()

	return c, nil
}

func (c *Channel) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	cl := &client{conn: conn, send: make(chan Event, maxQueuedEvent)}

	c.mu.Lock()
	c.clients[cl] = struct{}{}
	c.mu.Unlock()

	go c.writePump(cl)
}

func (c *Channel) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
		c.mu.Lock()
		delete(c.clients, cl)
		c.mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			body, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Publish broadcasts event to every currently connected client, dropping it
// for any client whose send buffer is already full.
func (c *Channel) Publish(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for cl := range c.clients {
		select {
		case cl.send <- event:
		default:
		}
	}
}

// Close stops accepting new connections and disconnects every client.
func (c *Channel) Close() {
	_ = c.httpServer.Close()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for cl := range c.clients {
		close(cl.send)
		delete(c.clients, cl)
	}
}
