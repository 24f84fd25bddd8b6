package catalogmodule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/config"
)

func TestParseAlbumURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"share link", "https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy", "4aawyAB9vmqN3uQ7FjRGTy", false},
		{"share link with query", "https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy?si=abc123", "4aawyAB9vmqN3uQ7FjRGTy", false},
		{"bare id", "4aawyAB9vmqN3uQ7FjRGTy", "4aawyAB9vmqN3uQ7FjRGTy", false},
		{"track link", "https://open.spotify.com/track/xyz", "", true},
		{"empty", "  ", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAlbumURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func albumFixture() map[string]interface{} {
	return map[string]interface{}{
		"id":   "4aawyAB9vmqN3uQ7FjRGTy",
		"name": "Discovery",
		"artists": []map[string]string{
			{"name": "Daft Punk"},
		},
		"release_date": "2001-03-07",
		"total_tracks": 14,
		"images": []map[string]interface{}{
			{"url": "https://img.example/large.jpg", "width": 640, "height": 640},
			{"url": "https://img.example/small.jpg", "width": 64, "height": 64},
		},
	}
}

// newTestClient stands up fake token and API endpoints and returns a
// client pointed at them.
func newTestClient(t *testing.T, withCache bool) (*Client, *int, *int) {
	t.Helper()

	tokenCalls := 0
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(tokenServer.Close)

	apiCalls := 0
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls++
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/search":
			assert.Equal(t, "album", r.URL.Query().Get("type"))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"albums": map[string]interface{}{
					"items": []interface{}{albumFixture()},
				},
			})
		case "/albums/4aawyAB9vmqN3uQ7FjRGTy":
			json.NewEncoder(w).Encode(albumFixture())
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(apiServer.Close)

	var cache *ResponseCache
	if withCache {
		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		require.NoError(t, err)
		require.NoError(t, db.AutoMigrate(&CachedResponse{}))
		cache = NewResponseCache(db)
	}

	client := NewClient(config.CatalogConfig{
		Enabled:            true,
		BaseURL:            apiServer.URL,
		TokenURL:           tokenServer.URL,
		ClientID:           "id",
		ClientSecret:       "secret",
		RequestTimeout:     5 * time.Second,
		SearchLimit:        5,
		CacheDurationHours: 1,
	}, cache)
	return client, &tokenCalls, &apiCalls
}

func TestClient_SearchAlbums(t *testing.T) {
	client, _, _ := newTestClient(t, false)

	results, err := client.SearchAlbums(context.Background(), "discovery")
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "4aawyAB9vmqN3uQ7FjRGTy", got.CatalogID)
	assert.Equal(t, "Discovery", got.Title)
	assert.Equal(t, []string{"Daft Punk"}, got.Artists)
	assert.Equal(t, "2001-03-07", got.ReleaseDate)
	assert.Equal(t, "https://img.example/large.jpg", got.CoverURL)
	assert.Equal(t, 14, got.TrackCount)
}

func TestClient_SearchAlbums_EmptyQuery(t *testing.T) {
	client, _, apiCalls := newTestClient(t, false)

	results, err := client.SearchAlbums(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, *apiCalls)
}

func TestClient_TokenIsReused(t *testing.T) {
	client, tokenCalls, _ := newTestClient(t, false)

	_, err := client.SearchAlbums(context.Background(), "one")
	require.NoError(t, err)
	_, err = client.SearchAlbums(context.Background(), "two")
	require.NoError(t, err)

	assert.Equal(t, 1, *tokenCalls)
}

func TestClient_GetAlbum(t *testing.T) {
	client, _, _ := newTestClient(t, false)

	album, err := client.GetAlbum(context.Background(), "4aawyAB9vmqN3uQ7FjRGTy")
	require.NoError(t, err)
	assert.Equal(t, "Discovery", album.Title)

	_, err = client.GetAlbum(context.Background(), "missing-id")
	assert.ErrorIs(t, err, ErrAlbumNotFound)
}

func TestClient_ResponseCacheAvoidsRepeatCalls(t *testing.T) {
	client, _, apiCalls := newTestClient(t, true)

	for i := 0; i < 3; i++ {
		album, err := client.GetAlbum(context.Background(), "4aawyAB9vmqN3uQ7FjRGTy")
		require.NoError(t, err)
		assert.Equal(t, "Discovery", album.Title)
	}

	assert.Equal(t, 1, *apiCalls)
}

func TestClient_LookupByURL(t *testing.T) {
	client, _, _ := newTestClient(t, false)

	album, err := client.LookupByURL(context.Background(), "https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy?si=x")
	require.NoError(t, err)
	assert.Equal(t, "Discovery", album.Title)
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(config.CatalogConfig{}, nil)
	_, err := client.SearchAlbums(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestResponseCache_Expiry(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&CachedResponse{}))
	cache := NewResponseCache(db)

	cache.Put("key", []byte("data"), -time.Minute)
	_, ok := cache.Get("key")
	assert.False(t, ok)

	purged, err := cache.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	cache.Put("key", []byte("fresh"), time.Hour)
	data, ok := cache.Get("key")
	require.True(t, ok)
	assert.Equal(t, []byte("fresh"), data)
}
