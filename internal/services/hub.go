package services

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/simulator"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ProgressMessage is the frame pushed to forecast subscribers.
type ProgressMessage struct {
	Type       string              `json:"type"`
	ForecastID uuid.UUID           `json:"forecast_id"`
	Progress   *simulator.Progress `json:"progress,omitempty"`
	Error      string              `json:"error,omitempty"`
}

const (
	MessageProgress  = "progress"
	MessageCompleted = "completed"
	MessageFailed    = "failed"
)

// Client is one websocket subscriber to a forecast run.
type Client struct {
	ForecastID uuid.UUID
	Conn       *websocket.Conn
	Send       chan []byte
	Hub        *ProgressHub
}

// ProgressHub fans forecast progress out to subscribed websocket clients.
type ProgressHub struct {
	clients    map[uuid.UUID]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	logger     *logrus.Logger
	mutex      sync.RWMutex
}

func NewProgressHub(logger *logrus.Logger) *ProgressHub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ProgressHub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		logger:     logger,
	}
}

// Run handles client registration until Stop is called.
func (h *ProgressHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.ForecastID] == nil {
				h.clients[client.ForecastID] = make(map[*Client]bool)
			}
			h.clients[client.ForecastID][client] = true
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"forecast_id":   client.ForecastID,
				"total_clients": h.ConnectionCount(),
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.remove(client)
			h.logger.WithFields(logrus.Fields{
				"forecast_id":   client.ForecastID,
				"total_clients": h.ConnectionCount(),
			}).Info("WebSocket client disconnected")

		case <-h.stop:
			h.mutex.Lock()
			for id, set := range h.clients {
				for client := range set {
					close(client.Send)
				}
				delete(h.clients, id)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every connection.
func (h *ProgressHub) Stop() {
	close(h.stop)
}

func (h *ProgressHub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	set, ok := h.clients[client.ForecastID]
	if !ok || !set[client] {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.ForecastID)
	}
}

// HandleWebSocket subscribes the caller to progress for the forecast in the :id path parameter.
func (h *ProgressHub) HandleWebSocket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid forecast ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		ForecastID: id,
		Conn:       conn,
		Send:       make(chan []byte, 256),
		Hub:        h,
	}

	select {
	case h.register <- client:
	case <-h.stop:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastProgress sends a progress frame to every subscriber of id.
func (h *ProgressHub) BroadcastProgress(id uuid.UUID, p simulator.Progress) {
	h.broadcast(id, ProgressMessage{Type: MessageProgress, ForecastID: id, Progress: &p})
}

// BroadcastDone tells subscribers the run finished, with err set on failure.
func (h *ProgressHub) BroadcastDone(id uuid.UUID, err error) {
	msg := ProgressMessage{Type: MessageCompleted, ForecastID: id}
	if err != nil {
		msg.Type = MessageFailed
		msg.Error = err.Error()
	}
	h.broadcast(id, msg)
}

func (h *ProgressHub) broadcast(id uuid.UUID, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients[id] {
		select {
		case client.Send <- data:
		default:
			// slow client
			close(client.Send)
			delete(h.clients[id], client)
		}
	}
	if len(h.clients[id]) == 0 {
		delete(h.clients, id)
	}
}

// Subscribers returns the number of clients watching id.
func (h *ProgressHub) Subscribers(id uuid.UUID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[id])
}

func (h *ProgressHub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// readPump drains the connection so control frames are processed.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.stop:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
