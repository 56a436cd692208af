package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/CharlotteMargare/savewater/internal/store"
)

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// EventHub fans check-in confirmations out to websocket subscribers.
type EventHub struct {
	mu       sync.RWMutex
	clients  map[*eventClient]struct{}
	upgrader websocket.Upgrader
	logger   *log.Logger
}

func NewEventHub(logger *log.Logger) *EventHub {
	return &EventHub{
		clients: make(map[*eventClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

type CheckInEvent struct {
	SubmissionID string    `json:"submissionId"`
	ChainID      uint64    `json:"chainId"`
	Sender       string    `json:"sender"`
	TxHash       string    `json:"txHash"`
	BlockNumber  uint64    `json:"blockNumber"`
	BlockTime    time.Time `json:"blockTime"`
}

func (h *EventHub) PublishCheckIn(sub *store.CheckInSubmission) {
	payload, err := json.Marshal(CheckInEvent{
		SubmissionID: sub.SubmissionID,
		ChainID:      sub.ChainID,
		Sender:       sub.Sender,
		TxHash:       sub.TxHash,
		BlockNumber:  sub.BlockNumber,
		BlockTime:    sub.BlockTime,
	})
	if err != nil {
		h.logf("marshal event: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			go h.closeClient(client)
		}
	}
}

func (h *EventHub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logf("upgrade websocket: %v", err)
		return
	}
	client := &eventClient{
		conn: conn,
		send: make(chan []byte, 32),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go client.writePump()
	go client.readPump(func() {
		h.closeClient(client)
	})
}

func (h *EventHub) Run(ctx context.Context) {
	<-ctx.Done()
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.conn.Close()
		delete(h.clients, client)
	}
}

func (h *EventHub) closeClient(client *eventClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	client.conn.Close()
	close(client.send)
}

func (h *EventHub) logf(format string, args ...any) {
	if h.logger != nil {
		h.logger.Printf(format, args...)
	}
}

func (c *eventClient) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *eventClient) readPump(onClose func()) {
	defer onClose()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
