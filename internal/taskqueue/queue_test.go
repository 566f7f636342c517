package taskqueue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/taskqueue"
)

type recordingHandler struct {
	mu             sync.Mutex
	needsRun       int
	shutdownDone   chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{shutdownDone: make(chan struct{})}
}

func (h *recordingHandler) OnNeedsRunTasks() {
	h.mu.Lock()
	h.needsRun++
	h.mu.Unlock()
}

func (h *recordingHandler) OnShutdownComplete() {
	close(h.shutdownDone)
}

func TestPostRunsInOrder(t *testing.T) {
	h := newRecordingHandler()
	q := taskqueue.New(h)

	var out []int
	for i := 0; i < 5; i++ {
		i := i
		q.Post(func() { out = append(out, i) })
	}
	q.RunTasks()

	require.Equal(t, []int{0, 1, 2, 3, 4}, out)
}

func TestPostDelayedRunsAfterDeadline(t *testing.T) {
	h := newRecordingHandler()
	q := taskqueue.New(h)

	ran := false
	q.PostDelayed(10*time.Millisecond, func() { ran = true })

	q.RunTasks()
	require.False(t, ran, "task must not fire before its delay elapses")

	time.Sleep(20 * time.Millisecond)
	q.RunTasks()
	require.True(t, ran)
}

func TestDelayedTaskCancel(t *testing.T) {
	h := newRecordingHandler()
	q := taskqueue.New(h)

	ran := false
	tag := q.PostDelayed(5*time.Millisecond, func() { ran = true })
	tag.Cancel()

	time.Sleep(15 * time.Millisecond)
	q.RunTasks()
	require.False(t, ran)
}

func TestDelayedTaskExpedite(t *testing.T) {
	h := newRecordingHandler()
	q := taskqueue.New(h)

	ran := false
	tag := q.PostDelayed(time.Hour, func() { ran = true })
	tag.Expedite()

	q.RunTasks()
	require.True(t, ran)
}

func TestShutdownCompletesWhenDrained(t *testing.T) {
	h := newRecordingHandler()
	q := taskqueue.New(h)

	done := false
	q.Post(func() { done = true })
	q.Shutdown()
	q.RunTasks()

	require.True(t, done)
	select {
	case <-h.shutdownDone:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not complete")
	}
}

func TestPostAfterShutdownCompletePanics(t *testing.T) {
	h := newRecordingHandler()
	q := taskqueue.New(h)
	q.Shutdown()
	q.RunTasks()
	<-h.shutdownDone

	require.Panics(t, func() {
		q.Post(func() {})
	})
}

func TestPostFromBackgroundGoroutineSignalsNeedsRunTasks(t *testing.T) {
	h := newRecordingHandler()
	q := taskqueue.New(h)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		q.Post(func() {})
	}()
	wg.Wait()

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.needsRun > 0
	}, time.Second, time.Millisecond)
}
