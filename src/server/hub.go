package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"autotrader/src/broadcast"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"
)

const writeWait = 5 * time.Second

type wsClient struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub fans messages out to every connected websocket observer. Clients that
// fail a write are dropped.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logger.Entry

	lock    sync.Mutex
	clients map[*wsClient]bool
}

func NewHub(origins []string, log *logger.Entry) *Hub {
	if log == nil {
		log = logger.WithField("component", "ws_hub")
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		log:     log,
		clients: make(map[*wsClient]bool),
	}
}

func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Broadcast encodes msg once and writes it to every client.
func (h *Hub) Broadcast(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.lock.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.lock.Unlock()

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			h.log.WithField("client", c.id).WithError(err).Debug("Dropping websocket client")
			h.remove(c)
		}
	}
	return nil
}

func (h *Hub) add(c *wsClient) {
	h.lock.Lock()
	h.clients[c] = true
	h.lock.Unlock()
}

func (h *Hub) remove(c *wsClient) {
	h.lock.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.lock.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

// Handler upgrades the request, sends the current status and then answers
// "ping" with "pong" until the client goes away.
func (h *Hub) Handler(status broadcast.StatusFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.WithError(err).Warn("WS upgrade error")
			return
		}
		c := &wsClient{id: uuid.NewString(), conn: conn}
		h.add(c)
		h.log.WithFields(map[string]interface{}{
			"client": c.id,
			"remote": r.RemoteAddr,
		}).Info("Websocket client connected")
		defer h.remove(c)

		if status != nil {
			initial, err := json.Marshal(broadcast.Message{
				Type:    broadcast.TypeStatusUpdate,
				Payload: status(context.WithoutCancel(r.Context())),
			})
			if err == nil {
				if err := c.write(initial); err != nil {
					return
				}
			}
		}

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(data) == "ping" {
				if err := c.write([]byte("pong")); err != nil {
					return
				}
			}
		}
	}
}
