package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/buildgrid/siteops/backend/internal/cache"
)

func TestStatsFeed_InitialSnapshot(t *testing.T) {
	api := cache.NewMock()
	api.Set("projects:1", "cached", time.Minute)

	feed := NewStatsFeed(map[string]cache.Cache{"api": api}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(feed.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer ws.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("Expected status %d, got %d", http.StatusSwitchingProtocols, resp.StatusCode)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}

	var msg StatsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}

	if msg.Type != "stats" {
		t.Errorf("Expected message type 'stats', got %s", msg.Type)
	}
	if msg.Caches["api"].Items != 1 {
		t.Errorf("api cache items = %d, want 1", msg.Caches["api"].Items)
	}
}

func TestStatsFeed_PeriodicPush(t *testing.T) {
	api := cache.NewMock()

	feed := NewStatsFeed(map[string]cache.Cache{"api": api}, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(feed.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer ws.Close()

	// Initial snapshot
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatalf("Failed to read initial snapshot: %v", err)
	}

	// Mutate the cache; a later periodic frame should reflect it
	api.Set("projects:1", "cached", time.Minute)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read periodic frame: %v", err)
		}

		var msg StatsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			t.Fatalf("Failed to unmarshal message: %v", err)
		}
		if msg.Caches["api"].Items == 1 {
			return
		}
	}
	t.Fatal("never observed updated cache stats in feed")
}

func TestStatsFeed_ClientDisconnect(t *testing.T) {
	feed := NewStatsFeed(map[string]cache.Cache{"api": cache.NewMock()}, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(feed.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	ws.Close()

	// The feed notices the closed connection and unregisters the client.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		feed.mu.Lock()
		n := len(feed.clients)
		feed.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("client never unregistered after disconnect")
}

func TestStatsFeed_ConnectAfterShutdown(t *testing.T) {
	feed := NewStatsFeed(map[string]cache.Cache{"api": cache.NewMock()}, 50*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	go feed.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(feed.HandleWebSocket))
	defer server.Close()

	// Stop the feed and wait for Run to finish its cleanup.
	cancel()
	select {
	case <-feed.done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed never shut down")
	}

	// A client connecting now must be refused promptly instead of
	// blocking the handler on the registration channel forever.
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		// Upgrade refused outright is fine too.
		return
	}
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			// Connection closed by the server, as expected.
			return
		}
	}
}

func TestStatsFeed_DisconnectDuringShutdown(t *testing.T) {
	feed := NewStatsFeed(map[string]cache.Cache{"api": cache.NewMock()}, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	go feed.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(feed.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer ws.Close()

	// Wait until the client is registered, then stop the feed. The
	// client's read pump must not deadlock on the unregister channel.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		feed.mu.Lock()
		n := len(feed.clients)
		feed.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-feed.done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed never shut down")
	}

	// The server closes the connection during shutdown; the client
	// observes it and its pumps exit without hanging on unregister.
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
