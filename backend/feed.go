package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = (feedPongWait * 9) / 10
)

// feedEvent is what the live match feed pushes to clients.
type feedEvent struct {
	Type string      `json:"type"` // "matches" | "error"
	Data interface{} `json:"data"`
}

// feedClient is one websocket subscriber.
type feedClient struct {
	userID int
	limit  int
	conn   *websocket.Conn
	// wake holds at most one pending refresh; bursts of profile updates
	// collapse into a single recomputation.
	wake chan struct{}
}

// matchFeed tracks the open feed connections keyed by user.
type matchFeed struct {
	mu            sync.RWMutex
	clientsByUser map[int]map[*feedClient]bool
}

func newMatchFeed() *matchFeed {
	return &matchFeed{clientsByUser: make(map[int]map[*feedClient]bool)}
}

func (f *matchFeed) register(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clientsByUser[c.userID] == nil {
		f.clientsByUser[c.userID] = make(map[*feedClient]bool)
	}
	f.clientsByUser[c.userID][c] = true
}

func (f *matchFeed) unregister(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if peers, ok := f.clientsByUser[c.userID]; ok {
		delete(peers, c)
		if len(peers) == 0 {
			delete(f.clientsByUser, c.userID)
		}
	}
}

// refresh asks every subscriber to recompute its matches. Any profile change
// can move any ranking, so everyone is woken.
func (f *matchFeed) refresh() {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, peers := range f.clientsByUser {
		for c := range peers {
			select {
			case c.wake <- struct{}{}:
			default:
				// A refresh is already pending for this client
			}
		}
	}
}

func (f *matchFeed) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, peers := range f.clientsByUser {
		n += len(peers)
	}
	return n
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are already filtered by the CORS layer for browsers.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// GET /ws/matches?token=...&limit=...
func (s *server) matchFeedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.userIDFromRequest(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		limit := parseLimit(r.URL.Query().Get("limit"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("websocket upgrade", zap.Int("user_id", userID), zap.Error(err))
			return
		}

		client := &feedClient{
			userID: userID,
			limit:  limit,
			conn:   conn,
			wake:   make(chan struct{}, 1),
		}
		// Send the current ranking right away
		client.wake <- struct{}{}

		s.feed.register(client)
		s.metrics.feedClients.Inc()
		defer func() {
			s.feed.unregister(client)
			s.metrics.feedClients.Dec()
			conn.Close()
		}()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go s.feedReader(client, cancel)
		s.feedWriter(ctx, client)
	}
}

// feedReader drains client frames so pongs and close frames are handled.
func (s *server) feedReader(c *feedClient, cancel context.CancelFunc) {
	defer cancel()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// feedWriter owns all writes on the connection.
func (s *server) feedWriter(ctx context.Context, c *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.wake:
			evt := feedEvent{Type: "matches"}
			views, err := s.matchesFor(ctx, c.userID, c.limit)
			if err != nil {
				s.log.Warn("feed matches", zap.Int("user_id", c.userID), zap.Error(err))
				evt = feedEvent{Type: "error", Data: "match error"}
			} else {
				evt.Data = views
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}
