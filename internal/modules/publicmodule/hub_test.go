package publicmodule

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantonx/sonar/internal/modules/shelfmodule"
)

func newHubServer(t *testing.T, hub *Hub, albums []shelfmodule.Album) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Serve(w, r, "alice", albums); err != nil {
			t.Logf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitForViewers(t *testing.T, hub *Hub, ownerID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ViewerCount(ownerID) == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, want, hub.ViewerCount(ownerID))
}

func TestHub_InitialSnapshotDelivered(t *testing.T) {
	hub := NewHub()
	url := newHubServer(t, hub, []shelfmodule.Album{{ID: "a1", Title: "Discovery"}})

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg shelfMessage
	require.NoError(t, json.Unmarshal(frame, &msg))
	assert.Equal(t, "shelf", msg.Type)
	assert.Equal(t, "alice", msg.OwnerID)
	require.Len(t, msg.Albums, 1)
	assert.Equal(t, "Discovery", msg.Albums[0].Title)

	waitForViewers(t, hub, "alice", 1)
}

func TestHub_ImmediateDisconnect(t *testing.T) {
	hub := NewHub()
	url := newHubServer(t, hub, []shelfmodule.Album{{ID: "a1", Title: "Discovery"}})

	// Viewers that vanish before reading a single frame must not disturb
	// the hub or other connections.
	for i := 0; i < 20; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		conn.Close()
	}

	waitForViewers(t, hub, "alice", 0)
	hub.BroadcastShelf("alice", nil)
}
