package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_BroadcastReachesConnectedObserver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// Registration races the broadcast; keep sending until the reader has a
	// frame.
	done := make(chan WSEvent, 1)
	go func() {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var event WSEvent
		if json.Unmarshal(payload, &event) == nil {
			done <- event
		}
	}()

	deadline := time.After(2 * time.Second)
	for {
		hub.Broadcast("snapshot", map[string]string{"state": "active"})
		select {
		case event := <-done:
			assert.Equal(t, "snapshot", event.Type)
			return
		case <-deadline:
			t.Fatal("broadcast never reached the observer")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestHub_BroadcastNeverBlocksWithoutObservers(t *testing.T) {
	hub := NewHub()
	// No Run loop draining the queue; the send must still return.
	for i := 0; i < 1000; i++ {
		hub.Broadcast("snapshot", i)
	}
}
