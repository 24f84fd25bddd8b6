package publicmodule

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/events"
	"github.com/mantonx/sonar/internal/modules/shelfmodule"
)

func setupPublicTest(t *testing.T) (*gin.Engine, *Module, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&shelfmodule.Album{}, &shelfmodule.HistoryEntry{}))

	module := NewModule(db, nil, NewShelfCache(time.Minute, 10))
	router := gin.New()
	module.RegisterRoutes(router)
	return router, module, db
}

func seedPublicAlbum(t *testing.T, db *gorm.DB, owner, title string, addedAt int64) {
	t.Helper()
	require.NoError(t, db.Create(&shelfmodule.Album{
		ID:      owner + "-" + title,
		OwnerID: owner,
		Title:   title,
		AddedAt: addedAt,
	}).Error)
}

func TestPublicShelf_ServesView(t *testing.T) {
	router, _, db := setupPublicTest(t)
	seedPublicAlbum(t, db, "alice", "Discovery", 1000)
	seedPublicAlbum(t, db, "bob", "Private-ish", 2000)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/public/alice/shelf", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OwnerID string `json:"ownerId"`
		View    struct {
			Albums []shelfmodule.Album `json:"albums"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.OwnerID)
	require.Len(t, resp.View.Albums, 1)
	assert.Equal(t, "Discovery", resp.View.Albums[0].Title)
}

func TestPublicShelf_RejectsBadViewParams(t *testing.T) {
	router, _, db := setupPublicTest(t)
	seedPublicAlbum(t, db, "alice", "Discovery", 1000)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/public/alice/shelf?groupBy=mood", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicShelf_CachesSnapshots(t *testing.T) {
	router, module, db := setupPublicTest(t)
	seedPublicAlbum(t, db, "alice", "Discovery", 1000)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/api/public/alice/shelf", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	hits, misses := module.cache.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestPublicShelf_ShelfEventInvalidatesCache(t *testing.T) {
	router, module, db := setupPublicTest(t)
	seedPublicAlbum(t, db, "alice", "Discovery", 1000)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/public/alice/shelf", nil))
	require.Equal(t, http.StatusOK, w.Code)

	// A shelf mutation lands; the stale snapshot must not be served.
	seedPublicAlbum(t, db, "alice", "Kid A", 2000)
	event := events.NewShelfEvent(events.EventShelfAlbumCreated, "alice", "Shelf changed", "album created")
	require.NoError(t, module.onShelfEvent(event))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/public/alice/shelf", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		View struct {
			Albums []shelfmodule.Album `json:"albums"`
		} `json:"view"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.View.Albums, 2)
}

func TestPublicStats_ServesCollectionStats(t *testing.T) {
	router, _, db := setupPublicTest(t)
	seedPublicAlbum(t, db, "alice", "Discovery", 1000)
	seedPublicAlbum(t, db, "alice", "Kid A", 2000)
	seedPublicAlbum(t, db, "bob", "Not Counted", 3000)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/public/alice/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OwnerID string `json:"ownerId"`
		Stats   struct {
			TotalAlbums int `json:"totalAlbums"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.OwnerID)
	assert.Equal(t, 2, resp.Stats.TotalAlbums)
}

func TestPublicShelf_EventWithoutOwnerIsIgnored(t *testing.T) {
	_, module, db := setupPublicTest(t)
	seedPublicAlbum(t, db, "alice", "Discovery", 1000)

	_, err := module.loadShelf("alice")
	require.NoError(t, err)

	event := events.NewSystemEvent(events.EventShelfAlbumCreated, "Shelf changed", "")
	require.NoError(t, module.onShelfEvent(event))

	assert.Equal(t, 1, module.cache.Len())
}
