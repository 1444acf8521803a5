package api

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *EventHub) *websocket.Conn {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	hub.Register(router.Group("/api/v1"))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestEventHub_ConcurrentBroadcasts(t *testing.T) {
	hub := NewEventHub()
	conn := dialHub(t, hub)

	// Lifecycle operations broadcast from their own request goroutines;
	// every frame that reaches the client must still be a whole message.
	const goroutines = 8
	const perGoroutine = 25

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				hub.QuestHired(uuid.New(), uuid.New())
			}
		}()
	}
	wg.Wait()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	received := 0
	for received < 10 {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		require.NoError(t, json.Unmarshal(payload, &msg))
		require.Equal(t, "quest_hired", msg.Type)
		received++
	}
	require.Greater(t, received, 0)
}

func TestEventHub_DroppedClientStopsReceiving(t *testing.T) {
	hub := NewEventHub()
	conn := dialHub(t, hub)

	conn.Close()

	// Give the reader loop a moment to notice the close, then make sure
	// broadcasting to an empty hub is harmless.
	time.Sleep(50 * time.Millisecond)
	hub.QuestCompleted(uuid.New())
}
