package imagecompressor_test

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/frame"
	"github.com/ttalvitie/retrojsvice/internal/httpserver"
	"github.com/ttalvitie/retrojsvice/internal/imagecompressor"
	"github.com/ttalvitie/retrojsvice/internal/testutil"
)

func TestSendNowServesWhitePixelBeforeFirstUpdate(t *testing.T) {
	queue, _ := testutil.NewQueuePump()

	addr := "127.0.0.1:18271"
	source := testutil.NewFixedSource()
	comp := imagecompressor.New(queue, source, nil, 101)

	srv, err := httpserver.Start(httpserver.Options{
		ListenAddr: addr,
		Handler: func(req *httpserver.Request) {
			queue.Post(func() { comp.SendNow(req) })
		},
	})
	require.NoError(t, err)
	defer srv.Shutdown()

	time.Sleep(30 * time.Millisecond)

	resp, err := http.Get("http://" + addr + "/image")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NotEmpty(t, body)
}

func TestSendNowServesPNGAfterUpdate(t *testing.T) {
	queue, _ := testutil.NewQueuePump()

	addr := "127.0.0.1:18272"
	source := testutil.NewFixedSource()
	source.Set(frame.NewCheckerboard(8, 8, 4).Fetch())
	comp := imagecompressor.New(queue, source, nil, 101)

	done := make(chan struct{})
	var lastContentType string

	srv, err := httpserver.Start(httpserver.Options{
		ListenAddr: addr,
		Handler: func(req *httpserver.Request) {
			queue.Post(func() {
				comp.NotifyUpdate()
				comp.SendWait(req)
			})
		},
	})
	require.NoError(t, err)
	defer srv.Shutdown()

	time.Sleep(30 * time.Millisecond)

	go func() {
		resp, err := http.Get("http://" + addr + "/image")
		if err == nil {
			lastContentType = resp.Header.Get("Content-Type")
			resp.Body.Close()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
	}

	require.Equal(t, "image/png", lastContentType)
}

func TestSetQualityRejectsOutOfRange(t *testing.T) {
	queue, _ := testutil.NewQueuePump()
	comp := imagecompressor.New(queue, testutil.NewFixedSource(), nil, 80)

	require.Panics(t, func() { comp.SetQuality(9) })
	require.Panics(t, func() { comp.SetQuality(102) })
}
