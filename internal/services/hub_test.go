package services

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gridiron-sim/internal/simulator"
)

func hubServer(t *testing.T) (*ProgressHub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewProgressHub(nil)
	go hub.Run()

	r := gin.New()
	r.GET("/ws/forecasts/:id", hub.HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/forecasts/" + id
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) ProgressMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ProgressMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestProgressHub_Broadcast(t *testing.T) {
	hub, srv := hubServer(t)
	defer hub.Stop()

	id, other := uuid.New(), uuid.New()
	conn := dial(t, srv, id.String())
	otherConn := dial(t, srv, other.String())
	require.Eventually(t, func() bool {
		return hub.Subscribers(id) == 1 && hub.Subscribers(other) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, hub.ConnectionCount())

	hub.BroadcastProgress(id, simulator.Progress{Total: 10, Completed: 4, Progress: 0.4})
	msg := readMessage(t, conn)
	assert.Equal(t, MessageProgress, msg.Type)
	assert.Equal(t, id, msg.ForecastID)
	require.NotNil(t, msg.Progress)
	assert.Equal(t, 4, msg.Progress.Completed)

	hub.BroadcastDone(id, errors.New("boom"))
	msg = readMessage(t, conn)
	assert.Equal(t, MessageFailed, msg.Type)
	assert.Equal(t, "boom", msg.Error)

	hub.BroadcastDone(other, nil)
	msg = readMessage(t, otherConn)
	assert.Equal(t, MessageCompleted, msg.Type)
	assert.Equal(t, other, msg.ForecastID)
}

func TestProgressHub_Disconnect(t *testing.T) {
	hub, srv := hubServer(t)
	defer hub.Stop()

	id := uuid.New()
	conn := dial(t, srv, id.String())
	require.Eventually(t, func() bool { return hub.Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers(id) == 0 }, 2*time.Second, 10*time.Millisecond)

	// no subscribers is a no-op
	hub.BroadcastProgress(id, simulator.Progress{Total: 1})
}

func TestProgressHub_InvalidID(t *testing.T) {
	hub, srv := hubServer(t)
	defer hub.Stop()

	resp, err := http.Get(srv.URL + "/ws/forecasts/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProgressHub_Stop(t *testing.T) {
	hub, srv := hubServer(t)

	id := uuid.New()
	conn := dial(t, srv, id.String())
	require.Eventually(t, func() bool { return hub.Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)

	hub.Stop()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}
