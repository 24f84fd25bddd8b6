package shelfmodule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestNormalizeArtists(t *testing.T) {
	tests := []struct {
		name string
		in   StringList
		want StringList
	}{
		{
			name: "comma never splits",
			in:   StringList{"Tyler, The Creator"},
			want: StringList{"Tyler, The Creator"},
		},
		{
			name: "semicolon splits",
			in:   StringList{"Daft Punk; Pharrell Williams"},
			want: StringList{"Daft Punk", "Pharrell Williams"},
		},
		{
			name: "mixed entries",
			in:   StringList{"Low", "A; B", " C "},
			want: StringList{"Low", "A", "B", "C"},
		},
		{
			name: "empty segments dropped",
			in:   StringList{";;名前 ;"},
			want: StringList{"名前"},
		},
		{
			name: "empty input",
			in:   StringList{},
			want: StringList{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeArtists(tt.in))
		})
	}
}

func TestNormalizeFormats_DefaultsToDigital(t *testing.T) {
	assert.Equal(t, StringList{FormatDigital}, NormalizeFormats(nil))
	assert.Equal(t, StringList{FormatDigital}, NormalizeFormats(StringList{"  "}))
	assert.Equal(t, StringList{FormatVinyl, FormatCD}, NormalizeFormats(StringList{" Vinyl", "CD "}))
}

func TestNormalizeAlbum(t *testing.T) {
	album := Album{
		Title:   "  Discovery ",
		Artists: StringList{"Daft Punk; Pharrell Williams"},
	}
	NormalizeAlbum(&album)

	assert.Equal(t, "Discovery", album.Title)
	assert.Equal(t, StringList{"Daft Punk", "Pharrell Williams"}, album.Artists)
	assert.Equal(t, StringList{FormatDigital}, album.Formats)
	assert.Equal(t, StringList{}, album.Genres)
}

func TestStringList_ScanToleratesLegacyShapes(t *testing.T) {
	var list StringList

	require.NoError(t, list.Scan(`["A","B"]`))
	assert.Equal(t, StringList{"A", "B"}, list)

	// Pre-migration rows stored the raw string
	require.NoError(t, list.Scan("Tyler, The Creator"))
	assert.Equal(t, StringList{"Tyler, The Creator"}, list)

	require.NoError(t, list.Scan([]byte(`["C"]`)))
	assert.Equal(t, StringList{"C"}, list)

	require.NoError(t, list.Scan(nil))
	assert.Equal(t, StringList{}, list)

	assert.Error(t, list.Scan(42))
}

func TestStringList_Value(t *testing.T) {
	value, err := StringList{"A", "B"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["A","B"]`, value)

	value, err = StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)
}

func TestMigrateLegacyFields(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Album{}))

	legacy := Album{
		ID:      "legacy-1",
		OwnerID: "owner",
		Title:   "Discovery",
		Artists: StringList{"Daft Punk; Pharrell Williams"},
		AddedAt: 1000,
	}
	clean := Album{
		ID:      "clean-1",
		OwnerID: "owner",
		Title:   "OK Computer",
		Artists: StringList{"Radiohead"},
		Formats: StringList{FormatVinyl},
		AddedAt: 2000,
	}
	require.NoError(t, db.Create(&legacy).Error)
	require.NoError(t, db.Create(&clean).Error)

	require.NoError(t, MigrateLegacyFields(db))

	var migrated Album
	require.NoError(t, db.First(&migrated, "id = ?", "legacy-1").Error)
	assert.Equal(t, StringList{"Daft Punk", "Pharrell Williams"}, migrated.Artists)
	assert.Equal(t, StringList{FormatDigital}, migrated.Formats)

	var untouched Album
	require.NoError(t, db.First(&untouched, "id = ?", "clean-1").Error)
	assert.Equal(t, StringList{FormatVinyl}, untouched.Formats)
}
