package devchannel_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ttalvitie/retrojsvice/internal/devchannel"
)

func TestPublishReachesConnectedClient(t *testing.T) {
	ch, err := devchannel.New("127.0.0.1:18501")
	require.NoError(t, err)
	defer ch.Close()

	time.Sleep(20 * time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial("ws://127.0.0.1:18501/", nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	ch.Publish(devchannel.Event{Kind: "window_close", Window: 7})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, body, err := conn.ReadMessage()
	require.NoError(t, err)

	var got devchannel.Event
	require.NoError(t, json.Unmarshal(body, &got))
	require.Equal(t, "window_close", got.Kind)
	require.Equal(t, uint64(7), got.Window)
}
