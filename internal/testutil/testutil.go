// Package testutil provides small test doubles shared across the package
// tests: a task queue pump loop and an in-memory frame source, used in place
// of a real embedded browser.
package testutil

import (
	"sync"

	"github.com/ttalvitie/retrojsvice/internal/taskqueue"
)

// QueuePump drives a taskqueue.Queue the way a real event loop would: it
// calls RunTasks whenever OnNeedsRunTasks fires, and signals Done when
// OnShutdownComplete fires.
type QueuePump struct {
	Done chan struct{}

	mu      sync.Mutex
	running bool
	again   bool
	queue   *taskqueue.Queue
}

// NewQueuePump creates a pump and its backing queue. Call Start once the
// queue is in use to begin servicing OnNeedsRunTasks signals.
func NewQueuePump() (*taskqueue.Queue, *QueuePump) {
	p := &QueuePump{Done: make(chan struct{})}
	p.queue = taskqueue.New(p)
	return p.queue, p
}

// OnNeedsRunTasks implements taskqueue.EventHandler.
func (p *QueuePump) OnNeedsRunTasks() {
	p.mu.Lock()
	if p.running {
		p.again = true
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	go p.runLoop()
}

func (p *QueuePump) runLoop() {
	for {
		p.queue.RunTasks()

		p.mu.Lock()
		if p.again {
			p.again = false
			p.mu.Unlock()
			continue
		}
		p.running = false
		p.mu.Unlock()
		return
	}
}

// OnShutdownComplete implements taskqueue.EventHandler.
func (p *QueuePump) OnShutdownComplete() {
	close(p.Done)
}

// FixedSource is a frame.Source test double that always returns the same
// buffer until Set is called.
type FixedSource struct {
	mu                    sync.Mutex
	data                  []byte
	width, height, pitch int
}

// NewFixedSource creates a FixedSource seeded with a single opaque pixel.
func NewFixedSource() *FixedSource {
	return &FixedSource{data: []byte{0, 0, 0, 0}, width: 1, height: 1, pitch: 1}
}

// Set replaces the frame returned by subsequent Fetch calls.
func (f *FixedSource) Set(data []byte, width, height, pitch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data, f.width, f.height, f.pitch = data, width, height, pitch
}

// Fetch implements frame.Source.
func (f *FixedSource) Fetch() (data []byte, width, height, pitch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data, f.width, f.height, f.pitch
}
