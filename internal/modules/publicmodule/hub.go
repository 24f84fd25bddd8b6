package publicmodule

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mantonx/sonar/internal/logger"
	"github.com/mantonx/sonar/internal/modules/shelfmodule"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Public shelves are world-readable, so cross-origin viewers are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// shelfMessage is the frame pushed to public shelf viewers. Every push
// carries the complete shelf; clients re-derive their view from it.
type shelfMessage struct {
	Type    string              `json:"type"`
	OwnerID string              `json:"ownerId"`
	Albums  []shelfmodule.Album `json:"albums"`
}

// Hub tracks websocket viewers per shelf owner and fans out snapshot
// pushes to them.
type Hub struct {
	mu      sync.RWMutex
	viewers map[string]map[*viewer]struct{}
}

type viewer struct {
	hub     *Hub
	ownerID string
	conn    *websocket.Conn
	send    chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		viewers: make(map[string]map[*viewer]struct{}),
	}
}

// ViewerCount returns the number of connected viewers for an owner.
func (h *Hub) ViewerCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers[ownerID])
}

// BroadcastShelf pushes the full shelf to every viewer of the owner.
func (h *Hub) BroadcastShelf(ownerID string, albums []shelfmodule.Album) {
	payload, err := json.Marshal(shelfMessage{
		Type:    "shelf",
		OwnerID: ownerID,
		Albums:  albums,
	})
	if err != nil {
		logger.Error("Failed to encode shelf push: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for v := range h.viewers[ownerID] {
		select {
		case v.send <- payload:
		default:
			// Slow consumer, drop the frame. The next shelf event will
			// carry a complete snapshot anyway.
		}
	}
}

// Serve upgrades the request and registers the connection as a viewer of
// the owner's shelf. The initial snapshot is pushed immediately.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, ownerID string, albums []shelfmodule.Album) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	v := &viewer{
		hub:     h,
		ownerID: ownerID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	// Queue the initial snapshot before the pumps start. Once readPump runs,
	// a disconnect may close the send channel at any moment.
	if payload, err := json.Marshal(shelfMessage{Type: "shelf", OwnerID: ownerID, Albums: albums}); err == nil {
		v.send <- payload
	}
	h.register(v)

	go v.writePump()
	go v.readPump()
	return nil
}

func (h *Hub) register(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.viewers[v.ownerID] == nil {
		h.viewers[v.ownerID] = make(map[*viewer]struct{})
	}
	h.viewers[v.ownerID][v] = struct{}{}
	logger.Debug("Public shelf viewer connected for owner %s", v.ownerID)
}

func (h *Hub) unregister(v *viewer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.viewers[v.ownerID]; ok {
		if _, present := set[v]; present {
			delete(set, v)
			close(v.send)
			if len(set) == 0 {
				delete(h.viewers, v.ownerID)
			}
		}
	}
}

// readPump drains inbound frames. Viewers never send application data;
// the pump exists to process control frames and detect disconnects.
func (v *viewer) readPump() {
	defer func() {
		v.hub.unregister(v)
		v.conn.Close()
	}()

	v.conn.SetReadLimit(maxMessageSize)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Public shelf viewer read error: %v", err)
			}
			return
		}
	}
}

func (v *viewer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
