package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/buildgrid/siteops/backend/internal/cache"
	"github.com/buildgrid/siteops/backend/internal/logger"
	"github.com/buildgrid/siteops/backend/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 30 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// How often stats snapshots are pushed to clients
	defaultPushInterval = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS middleware handles origin policy
		return true
	},
}

// StatsMessage is one stats feed frame.
type StatsMessage struct {
	Type   string                        `json:"type"` // "stats"
	At     string                        `json:"at"`
	Caches map[string]CacheStatsResponse `json:"caches"`
}

// StatsFeed pushes periodic cache statistics to WebSocket clients.
type StatsFeed struct {
	caches   map[string]cache.Cache
	interval time.Duration

	mu      sync.Mutex
	clients map[*feedClient]bool

	register   chan *feedClient
	unregister chan *feedClient

	// done is closed when Run exits so clients connecting or
	// disconnecting during shutdown do not block forever.
	done chan struct{}
}

type feedClient struct {
	feed *StatsFeed
	conn *websocket.Conn
	send chan []byte
}

// NewStatsFeed creates a stats feed over the given named caches. interval
// zero means 5 seconds.
func NewStatsFeed(caches map[string]cache.Cache, interval time.Duration) *StatsFeed {
	if interval <= 0 {
		interval = defaultPushInterval
	}
	return &StatsFeed{
		caches:     caches,
		interval:   interval,
		clients:    make(map[*feedClient]bool),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
		done:       make(chan struct{}),
	}
}

// Run drives registration and the periodic push loop until ctx is done.
func (f *StatsFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.mu.Lock()
			for client := range f.clients {
				close(client.send)
				delete(f.clients, client)
				metrics.StatsFeedConnections.Dec()
			}
			f.mu.Unlock()
			close(f.done)
			return

		case client := <-f.register:
			f.mu.Lock()
			f.clients[client] = true
			total := len(f.clients)
			f.mu.Unlock()
			metrics.StatsFeedConnections.Inc()
			logger.Info("Stats feed client connected", "total_clients", total)

		case client := <-f.unregister:
			f.mu.Lock()
			if _, ok := f.clients[client]; ok {
				delete(f.clients, client)
				close(client.send)
				metrics.StatsFeedConnections.Dec()
			}
			total := len(f.clients)
			f.mu.Unlock()
			logger.Info("Stats feed client disconnected", "total_clients", total)

		case <-ticker.C:
			f.push()
		}
	}
}

// push broadcasts a stats snapshot to every connected client. Clients
// whose send buffer is full are dropped.
func (f *StatsFeed) push() {
	f.mu.Lock()
	clientCount := len(f.clients)
	f.mu.Unlock()
	if clientCount == 0 {
		return
	}

	data, err := json.Marshal(f.snapshot())
	if err != nil {
		logger.Error("Failed to marshal stats feed message", "error", err)
		return
	}

	f.mu.Lock()
	for client := range f.clients {
		select {
		case client.send <- data:
			metrics.StatsFeedMessagesSent.Inc()
		default:
			close(client.send)
			delete(f.clients, client)
			metrics.StatsFeedConnections.Dec()
		}
	}
	f.mu.Unlock()
}

func (f *StatsFeed) snapshot() StatsMessage {
	msg := StatsMessage{
		Type:   "stats",
		At:     time.Now().UTC().Format(time.RFC3339),
		Caches: make(map[string]CacheStatsResponse, len(f.caches)),
	}
	for name, c := range f.caches {
		msg.Caches[name] = statsResponse(c.Stats())
	}
	return msg
}

// HandleWebSocket upgrades the connection and streams stats snapshots.
// GET /api/cache/stats/ws
func (f *StatsFeed) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response
		logger.Error("Failed to upgrade to WebSocket", "error", err)
		return
	}

	client := &feedClient{
		feed: f,
		conn: conn,
		send: make(chan []byte, 16),
	}

	// Hand the client its first snapshot immediately rather than making it
	// wait a full interval.
	if data, err := json.Marshal(f.snapshot()); err == nil {
		client.send <- data
	}

	select {
	case f.register <- client:
	case <-f.done:
		// Feed already stopped; refuse the connection.
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards client messages and detects disconnects.
func (c *feedClient) readPump() {
	defer func() {
		select {
		case c.feed.unregister <- c:
		case <-c.feed.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Stats feed unexpected close", "error", err)
			}
			break
		}
	}
}

// writePump pumps messages from the feed to the WebSocket connection.
func (c *feedClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Feed closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
