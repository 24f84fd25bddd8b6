package historymodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/modules/shelfmodule"
)

func setupHistoryTest(t *testing.T) (*HistoryManager, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&shelfmodule.Album{}, &shelfmodule.HistoryEntry{}))

	require.NoError(t, db.Create(&shelfmodule.Album{
		ID:      "album-1",
		OwnerID: "owner",
		Title:   "Discovery",
		AddedAt: 1000,
	}).Error)

	return NewHistoryManager(db, nil), db
}

func lastListened(t *testing.T, db *gorm.DB, albumID string) *int64 {
	t.Helper()
	var album shelfmodule.Album
	require.NoError(t, db.First(&album, "id = ?", albumID).Error)
	return album.LastListened
}

func TestLogListen_AdvancesLastListened(t *testing.T) {
	manager, db := setupHistoryTest(t)

	entry, err := manager.LogListen("owner", "album-1", 5000, "")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, int64(5000), entry.ListenedAt)

	got := lastListened(t, db, "album-1")
	require.NotNil(t, got)
	assert.Equal(t, int64(5000), *got)
}

func TestLogListen_DefaultsToNow(t *testing.T) {
	manager, db := setupHistoryTest(t)

	entry, err := manager.LogListen("owner", "album-1", 0, "first spin")
	require.NoError(t, err)
	assert.Greater(t, entry.ListenedAt, int64(0))
	assert.Equal(t, "first spin", entry.Note)

	got := lastListened(t, db, "album-1")
	require.NotNil(t, got)
	assert.Equal(t, entry.ListenedAt, *got)
}

func TestLogListen_BackdatedEntryDoesNotRegress(t *testing.T) {
	manager, db := setupHistoryTest(t)

	_, err := manager.LogListen("owner", "album-1", 5000, "")
	require.NoError(t, err)
	_, err = manager.LogListen("owner", "album-1", 2000, "found an old note")
	require.NoError(t, err)

	got := lastListened(t, db, "album-1")
	require.NotNil(t, got)
	assert.Equal(t, int64(5000), *got)
}

func TestLogListen_SnapshotsAlbumFields(t *testing.T) {
	manager, db := setupHistoryTest(t)
	require.NoError(t, db.Create(&shelfmodule.Album{
		ID:       "album-2",
		OwnerID:  "owner",
		Title:    "Homework",
		Artists:  shelfmodule.StringList{"Daft Punk"},
		CoverURL: "https://img.example/homework.jpg",
		AddedAt:  2000,
	}).Error)

	entry, err := manager.LogListen("owner", "album-2", 5000, "")
	require.NoError(t, err)
	assert.Equal(t, "Homework", entry.Title)
	assert.Equal(t, shelfmodule.StringList{"Daft Punk"}, entry.Artists)
	assert.Equal(t, "https://img.example/homework.jpg", entry.CoverURL)

	// The snapshot outlives the album itself.
	require.NoError(t, db.Delete(&shelfmodule.Album{}, "id = ?", "album-2").Error)

	entries, err := manager.ForAlbum("owner", "album-2")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Homework", entries[0].Title)
	assert.Equal(t, shelfmodule.StringList{"Daft Punk"}, entries[0].Artists)
}

func TestLogListen_UnknownAlbum(t *testing.T) {
	manager, _ := setupHistoryTest(t)

	_, err := manager.LogListen("owner", "nope", 5000, "")
	assert.ErrorIs(t, err, shelfmodule.ErrAlbumNotFound)

	_, err = manager.LogListen("someone-else", "album-1", 5000, "")
	assert.ErrorIs(t, err, shelfmodule.ErrAlbumNotFound)
}

func TestDeleteEntry_RecomputesLastListened(t *testing.T) {
	manager, db := setupHistoryTest(t)

	_, err := manager.LogListen("owner", "album-1", 2000, "")
	require.NoError(t, err)
	latest, err := manager.LogListen("owner", "album-1", 5000, "")
	require.NoError(t, err)

	require.NoError(t, manager.DeleteEntry("owner", latest.ID))

	got := lastListened(t, db, "album-1")
	require.NotNil(t, got)
	assert.Equal(t, int64(2000), *got)
}

func TestDeleteEntry_ClearsLastListenedWhenEmpty(t *testing.T) {
	manager, db := setupHistoryTest(t)

	entry, err := manager.LogListen("owner", "album-1", 5000, "")
	require.NoError(t, err)
	require.NoError(t, manager.DeleteEntry("owner", entry.ID))

	assert.Nil(t, lastListened(t, db, "album-1"))
}

func TestDeleteEntry_UnknownEntry(t *testing.T) {
	manager, _ := setupHistoryTest(t)
	assert.ErrorIs(t, manager.DeleteEntry("owner", "nope"), ErrEntryNotFound)
}

func TestRecent_OrdersAndLimits(t *testing.T) {
	manager, _ := setupHistoryTest(t)

	for _, ts := range []int64{1000, 3000, 2000} {
		_, err := manager.LogListen("owner", "album-1", ts, "")
		require.NoError(t, err)
	}

	entries, err := manager.Recent("owner", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3000), entries[0].ListenedAt)
	assert.Equal(t, int64(2000), entries[1].ListenedAt)

	all, err := manager.Recent("owner", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestForAlbum(t *testing.T) {
	manager, db := setupHistoryTest(t)
	require.NoError(t, db.Create(&shelfmodule.Album{
		ID: "album-2", OwnerID: "owner", Title: "Other", AddedAt: 2000,
	}).Error)

	_, err := manager.LogListen("owner", "album-1", 1000, "")
	require.NoError(t, err)
	_, err = manager.LogListen("owner", "album-2", 2000, "")
	require.NoError(t, err)

	entries, err := manager.ForAlbum("owner", "album-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "album-1", entries[0].AlbumID)
}
