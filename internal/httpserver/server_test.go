package httpserver_test

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/httpserver"
)

func TestServerRespondsAndAuth(t *testing.T) {
	addr := "127.0.0.1:18173"
	srv, err := httpserver.Start(httpserver.Options{
		ListenAddr: addr,
		MaxThreads: 4,
		AuthUser:   "alice",
		AuthPass:   "secret",
		Handler: func(r *httpserver.Request) {
			go r.SendHTML(http.StatusOK, []byte("<html>hi</html>"))
		},
	})
	require.NoError(t, err)
	defer srv.Shutdown()

	time.Sleep(50 * time.Millisecond)

	client := &http.Client{}

	// No credentials -> 401 with challenge.
	resp, err := client.Get("http://" + addr + "/")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
	resp.Body.Close()

	// Correct credentials -> 200.
	req, _ := http.NewRequest(http.MethodGet, "http://"+addr+"/", nil)
	req.SetBasicAuth("alice", "secret")
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Contains(t, string(body), "hi")
	resp.Body.Close()

	// Wrong password -> 401.
	req2, _ := http.NewRequest(http.MethodGet, "http://"+addr+"/", nil)
	req2.SetBasicAuth("alice", "wrong")
	resp, err = client.Do(req2)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestServerNoAuthByDefault(t *testing.T) {
	addr := "127.0.0.1:18174"
	srv, err := httpserver.Start(httpserver.Options{
		ListenAddr: addr,
		Handler: func(r *httpserver.Request) {
			go r.SendHTML(http.StatusOK, []byte("ok"))
		},
	})
	require.NoError(t, err)
	defer srv.Shutdown()

	time.Sleep(50 * time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://%s/", addr))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}
