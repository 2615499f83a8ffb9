package routes

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"fleetinventory/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans workflow events out to every connected websocket client.
type Hub struct {
	upgrader  websocket.Upgrader
	log       *zap.Logger
	writeWait time.Duration
	broadcast chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mutex   sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // callers are authenticated before the upgrade
			},
		},
		log:       log,
		writeWait: 10 * time.Second,
		broadcast: make(chan []byte, 100),
		done:      make(chan struct{}),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Publish queues an event for broadcast. Events are dropped when the queue is full.
func (h *Hub) Publish(e workflow.Event) {
	message, err := json.Marshal(e)
	if err != nil {
		h.log.Error("Failed to encode event", zap.String("type", e.Type), zap.Error(err))
		return
	}
	select {
	case <-h.done:
	case h.broadcast <- message:
	default:
		h.log.Warn("Event queue full, dropping event", zap.String("type", e.Type), zap.Uint("id", e.ID))
	}
}

// Run writes queued messages to every client until Close is called. Writes happen
// outside the client lock; a client that cannot take a message within writeWait is
// dropped.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case message := <-h.broadcast:
			for _, client := range h.snapshot() {
				client.SetWriteDeadline(time.Now().Add(h.writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.log.Warn("WebSocket write error", zap.Error(err))
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) add(client *websocket.Conn) {
	h.mutex.Lock()
	h.clients[client] = true
	h.mutex.Unlock()
}

func (h *Hub) drop(client *websocket.Conn) {
	h.mutex.Lock()
	delete(h.clients, client)
	h.mutex.Unlock()
	client.Close()
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.mutex.Lock()
		for client := range h.clients {
			client.Close()
			delete(h.clients, client)
		}
		h.mutex.Unlock()
	})
}

func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Handler upgrades the request and keeps the client registered until it disconnects.
// Clients only listen; anything they send is discarded.
func (h *Hub) Handler() fiber.Handler {
	return adaptor.HTTPHandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("Error upgrading", zap.Error(err))
			return
		}
		defer conn.Close()

		h.add(conn)
		h.log.Info("Client connected", zap.String("remote", conn.RemoteAddr().String()))

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.Warn("WebSocket read error", zap.Error(err))
				}
				break
			}
		}

		h.mutex.Lock()
		delete(h.clients, conn)
		h.mutex.Unlock()
		h.log.Info("Client disconnected", zap.String("remote", conn.RemoteAddr().String()))
	})
}
