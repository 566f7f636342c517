package taskqueue

import (
	"container/heap"
	"time"
)

// DelayedTask is the tag returned by Queue.PostDelayed. Cancel prevents the
// task from firing (a no-op if it has already fired or been cancelled);
// Expedite reschedules it to fire as soon as possible, matching the
// DelayedTaskTag::expedite behavior used by the image compressor's
// long-poll waiter slot.
type DelayedTask struct {
	queue    *Queue
	task     func()
	deadline time.Time
	active   bool

	// index is maintained by container/heap.
	index int
}

// Cancel prevents the task from running if it has not already done so.
func (t *DelayedTask) Cancel() {
	t.queue.mu.Lock()
	t.active = false
	t.queue.mu.Unlock()
}

// Expedite advances the task's deadline to now, causing it to run on the
// next RunTasks call.
func (t *DelayedTask) Expedite() {
	t.queue.mu.Lock()
	if t.active {
		t.deadline = time.Now()
		heap.Fix(&t.queue.delayed, t.index)
	}
	t.queue.mu.Unlock()

	t.queue.rearmTimer()
}

// delayedHeap is a min-heap on deadline, implementing container/heap.Interface.
type delayedHeap []*DelayedTask

func (h delayedHeap) Len() int { return len(h) }
func (h delayedHeap) Less(i, j int) bool {
	return h[i].deadline.Before(h[j].deadline)
}
func (h delayedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *delayedHeap) Push(x any) {
	t := x.(*DelayedTask)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
