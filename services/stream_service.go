package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kimtaehoon222/crypto-stock-monitor/models"
)

// Stream configuration
const (
	MaxStreamClients      = 100
	StreamWriteTimeout    = 10 * time.Second
	StreamPongTimeout     = 60 * time.Second
	StreamPingInterval    = 30 * time.Second
	streamSendBufferSize  = 256
	streamBroadcastBuffer = 256
)

// StreamMessage is the envelope broadcast to WebSocket clients
type StreamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
	Time string      `json:"time"`
}

// streamClient is one connected WebSocket subscriber
type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

// StreamHub broadcasts ingested ticks and fired alerts to WebSocket
// clients. It implements AlertSink so the evaluator can dispatch to it.
type StreamHub struct {
	clients    map[*streamClient]bool
	broadcast  chan StreamMessage
	register   chan *streamClient
	unregister chan *streamClient
	shutdown   chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
}

// NewStreamHub creates a hub; call Run in a goroutine to start it
func NewStreamHub() *StreamHub {
	return &StreamHub{
		clients:    make(map[*streamClient]bool),
		broadcast:  make(chan StreamMessage, streamBroadcastBuffer),
		register:   make(chan *streamClient),
		unregister: make(chan *streamClient),
		shutdown:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Run processes client registration and broadcasts until Shutdown
func (h *StreamHub) Run() {
	for {
		select {
		case <-h.shutdown:
			return

		case client := <-h.register:
			h.mu.Lock()
			if len(h.clients) >= MaxStreamClients {
				h.mu.Unlock()
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "Server at capacity"))
				client.conn.Close()
				log.Printf("Stream client rejected: max clients reached (%d)", MaxStreamClients)
				continue
			}
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("Stream client connected. Total clients: %d", count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("Stream client disconnected. Total clients: %d", count)

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				log.Printf("Error marshaling broadcast message: %v", err)
				continue
			}

			h.mu.Lock()
			dead := make([]*streamClient, 0)
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Client buffer full, mark for removal
					dead = append(dead, client)
				}
			}
			for _, client := range dead {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
		}
	}
}

// Shutdown stops the hub and closes all client connections
func (h *StreamHub) Shutdown() {
	close(h.shutdown)

	h.mu.Lock()
	for client := range h.clients {
		close(client.send)
		client.conn.Close()
	}
	h.clients = make(map[*streamClient]bool)
	h.mu.Unlock()

	log.Println("Stream hub shutdown complete")
}

// BroadcastTick publishes an ingested tick to all clients
func (h *StreamHub) BroadcastTick(tick *models.PriceTick) {
	h.publish(StreamMessage{
		Type: "tick",
		Data: tick,
		Time: time.Now().UTC().Format(time.RFC3339),
	})
}

// Notify publishes a fired alert to all clients (AlertSink)
func (h *StreamHub) Notify(event *models.AlertEvent) {
	h.publish(StreamMessage{
		Type: "alert",
		Data: event,
		Time: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *StreamHub) publish(message StreamMessage) {
	select {
	case h.broadcast <- message:
	default:
		log.Println("Stream broadcast buffer full, dropping message")
	}
}

// HandleWebSocket upgrades the connection and registers the client
func (h *StreamHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	atCapacity := len(h.clients) >= MaxStreamClients
	h.mu.RUnlock()

	if atCapacity {
		http.Error(w, "Server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &streamClient{
		conn: conn,
		send: make(chan []byte, streamSendBufferSize),
	}

	h.register <- client

	go client.writePump()
	go client.readPump(h)
}

// writePump writes messages to the WebSocket connection
func (c *streamClient) writePump() {
	ticker := time.NewTicker(StreamPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(StreamWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(StreamWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so control frames are processed
func (c *streamClient) readPump(h *StreamHub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(StreamPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(StreamPongTimeout))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}
	}
}
