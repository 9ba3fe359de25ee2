package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"recurring-poll-backend/mq"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin access is governed by the CORS middleware; the websocket
	// endpoint accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains active websocket clients grouped by poll instance and fans
// vote updates out to the group watching that instance.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	runOnce sync.Once
}

// BroadcastMessage targets every client watching one instance.
type BroadcastMessage struct {
	InstanceID string
	Payload    []byte
}

// Client is one websocket subscriber watching a poll instance.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	instanceID string
}

// GlobalHub is the process-wide hub for live result subscriptions.
var GlobalHub = NewHub()

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 64),
	}
}

// Run starts the hub loop. Safe to call more than once; only the first call
// starts the goroutine.
func (h *Hub) Run() {
	h.runOnce.Do(func() {
		go h.loop()
	})
}

func (h *Hub) loop() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			group, ok := h.clients[client.instanceID]
			if !ok {
				group = make(map[*Client]bool)
				h.clients[client.instanceID] = group
			}
			group[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if group, ok := h.clients[client.instanceID]; ok {
				if _, registered := group[client]; registered {
					delete(group, client)
					close(client.send)
					if len(group) == 0 {
						delete(h.clients, client.instanceID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients[msg.InstanceID] {
				select {
				case client.send <- msg.Payload:
				default:
					// Slow consumer, drop it.
					delete(h.clients[msg.InstanceID], client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a payload for every client watching the instance.
func (h *Hub) Broadcast(instanceID string, payload []byte) {
	select {
	case h.broadcast <- &BroadcastMessage{InstanceID: instanceID, Payload: payload}:
	default:
		log.Printf("ws: broadcast queue full, dropping update for instance %s", instanceID)
	}
}

// BroadcastVoteUpdate is the message queue consumer feeding live
// subscribers. It signals watching clients that the instance's results
// changed; clients refetch the results endpoint.
func BroadcastVoteUpdate(ev mq.VoteEvent) error {
	payload, err := json.Marshal(gin.H{
		"type":        "vote",
		"poll_id":     ev.PollID,
		"instance_id": ev.InstanceID,
		"option_id":   ev.OptionID,
		"timestamp":   ev.Timestamp,
	})
	if err != nil {
		return err
	}
	GlobalHub.Broadcast(ev.InstanceID, payload)
	return nil
}

// HandleInstanceWS upgrades the connection and subscribes the client to one
// instance's live updates.
func HandleInstanceWS(c *gin.Context) {
	instanceID := c.Param("id")
	if instanceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "instance id is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:        GlobalHub,
		conn:       conn,
		send:       make(chan []byte, 16),
		instanceID: instanceID,
	}
	GlobalHub.register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; its job is detecting disconnects.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
