package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"auction-engine/internal/events"
	"auction-engine/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 32
)


type client struct {
	userID string
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub fans auction events out to websocket watchers of each auction
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{} // key: auctionID
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub. Upgrades are accepted from the given origins;
// none or "*" accepts any origin.
func NewHub(allowedOrigins ...string) *Hub {
	h := &Hub{rooms: make(map[string]map[*client]struct{})}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// non-browser clients send no Origin
		return origin == "" || set[origin]
	}
}

// Handle is an events.Handler. Events with a recipient reach only that user's
// connections; broadcast events reach everyone watching the auction.
func (h *Hub) Handle(_ context.Context, e events.Event) error {
	msg, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.rooms[e.AuctionID] {
		if e.RecipientID != "" && c.userID != e.RecipientID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		utils.Warn("Hub: dropping slow websocket client", map[string]any{
			"auction_id": e.AuctionID,
			"user_id":    c.userID,
		})
		h.remove(e.AuctionID, c)
	}
	return nil
}

// Clients returns the number of connections watching an auction
func (h *Hub) Clients(auctionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[auctionID])
}

func (h *Hub) add(auctionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[auctionID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[auctionID] = room
	}
	room[c] = struct{}{}
}

func (h *Hub) remove(auctionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[auctionID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, auctionID)
		}
	}
	c.close()
}

// ServeWS upgrades the request and streams events for auctionID until the peer leaves
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, auctionID, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.Warn("Hub: websocket upgrade failed", map[string]any{
			"auction_id": auctionID,
			"error":      err.Error(),
		})
		return
	}

	c := &client{userID: userID, send: make(chan []byte, sendBuffer)}
	h.add(auctionID, c)

	go writePump(conn, c)
	readPump(conn)
	h.remove(auctionID, c)
}

// readPump discards client frames; it only exists to notice the peer going away
func readPump(conn *websocket.Conn) {
	conn.SetReadLimit(1024)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
