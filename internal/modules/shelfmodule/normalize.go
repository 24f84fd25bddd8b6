package shelfmodule

import (
	"strings"

	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/logger"
)

// NormalizeArtists canonicalizes the artist list. Legacy records stored a
// single string that may hold several names joined by ";". The rule is:
// split on ";" when present, otherwise the whole string is one artist.
// A comma never splits ("Tyler, The Creator" stays one name). Names are
// trimmed and empties dropped.
func NormalizeArtists(raw StringList) StringList {
	out := make(StringList, 0, len(raw))
	for _, entry := range raw {
		if strings.Contains(entry, ";") {
			for _, part := range strings.Split(entry, ";") {
				if name := strings.TrimSpace(part); name != "" {
					out = append(out, name)
				}
			}
			continue
		}
		if name := strings.TrimSpace(entry); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// NormalizeFormats trims format names and defaults an empty set to Digital.
func NormalizeFormats(raw StringList) StringList {
	out := make(StringList, 0, len(raw))
	for _, entry := range raw {
		if name := strings.TrimSpace(entry); name != "" {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		out = StringList{FormatDigital}
	}
	return out
}

// NormalizeGenres trims genre names and drops empties.
func NormalizeGenres(raw StringList) StringList {
	out := make(StringList, 0, len(raw))
	for _, entry := range raw {
		if name := strings.TrimSpace(entry); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// NormalizeAlbum applies all field normalizations in place. Called at the
// store-read and store-write boundary so that everything downstream only
// ever sees the canonical list shapes.
func NormalizeAlbum(album *Album) {
	album.Artists = NormalizeArtists(album.Artists)
	album.Formats = NormalizeFormats(album.Formats)
	album.Genres = NormalizeGenres(album.Genres)
	album.Title = strings.TrimSpace(album.Title)
}

// normalized reports whether the album already carries canonical shapes.
func normalized(album *Album) bool {
	for _, a := range album.Artists {
		if strings.Contains(a, ";") || a != strings.TrimSpace(a) {
			return false
		}
	}
	if len(album.Formats) == 0 {
		return false
	}
	return true
}

// MigrateLegacyFields runs a one-time normalization pass over all stored
// albums. Records created before the list migration carry semicolon-joined
// artist strings and bare format strings; this rewrites them in canonical
// form so the read path never has to guess again.
func MigrateLegacyFields(db *gorm.DB) error {
	var albums []Album
	if err := db.Find(&albums).Error; err != nil {
		return err
	}

	migrated := 0
	for i := range albums {
		album := &albums[i]
		if normalized(album) {
			continue
		}
		NormalizeAlbum(album)
		err := db.Model(&Album{}).Where("id = ?", album.ID).Updates(map[string]interface{}{
			"artists": album.Artists,
			"formats": album.Formats,
			"genres":  album.Genres,
		}).Error
		if err != nil {
			return err
		}
		migrated++
	}

	if migrated > 0 {
		logger.Info("Normalized %d legacy album records", migrated)
	}
	return nil
}
