package shelfmodule

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Album statuses. An absent status is treated as Collection everywhere.
const (
	StatusCollection = "Collection"
	StatusWishlist   = "Wishlist"
	StatusPreorder   = "Pre-order"
)

// Known physical/digital formats
const (
	FormatDigital  = "Digital"
	FormatVinyl    = "Vinyl"
	FormatCD       = "CD"
	FormatCassette = "Cassette"
)

// StringList is a JSON-encoded list of strings stored in a text column.
// Legacy rows written before the list migration may hold a bare string;
// Scan tolerates that shape and yields a single-element list.
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}

	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}

	if raw == "" {
		*l = StringList{}
		return nil
	}

	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		*l = StringList(list)
		return nil
	}

	// Legacy shape: a bare string value
	*l = StringList{raw}
	return nil
}

// Album represents one record on a user's shelf. IDs are assigned by the
// store at creation and stable for the record's lifetime. AddedAt is an
// epoch-millisecond timestamp set once at creation.
type Album struct {
	ID           string     `gorm:"primaryKey" json:"id"`
	OwnerID      string     `gorm:"index;not null" json:"ownerId"`
	Title        string     `gorm:"not null" json:"title"`
	Artists      StringList `gorm:"type:text" json:"artist"`
	ReleaseDate  string     `json:"releaseDate,omitempty"`
	Formats      StringList `gorm:"type:text" json:"format"`
	Status       string     `json:"status,omitempty"`
	Rating       int        `json:"rating"`
	Genres       StringList `gorm:"type:text" json:"genres"`
	CoverURL     string     `json:"coverUrl,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	AddedAt      int64      `gorm:"not null;index" json:"addedAt"`
	CustomOrder  *float64   `json:"customOrder,omitempty"`
	LastListened *int64     `json:"lastListened,omitempty"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
}

// TableName returns the table name for Album
func (Album) TableName() string {
	return "albums"
}

// EffectiveStatus returns the album status, defaulting absent to Collection.
func (a *Album) EffectiveStatus() string {
	if a.Status == "" {
		return StatusCollection
	}
	return a.Status
}

// PrimaryArtist returns the first credited artist, or "" when none exist.
func (a *Album) PrimaryArtist() string {
	if len(a.Artists) == 0 {
		return ""
	}
	return a.Artists[0]
}

// EffectiveOrder returns the manual sort key when the album has been
// reordered at least once, and -AddedAt otherwise. Never-reordered albums
// therefore sort newest first and interleave with manually placed albums
// in the same numeric key space.
func (a *Album) EffectiveOrder() float64 {
	if a.CustomOrder != nil {
		return *a.CustomOrder
	}
	return -float64(a.AddedAt)
}

// ReleaseYear returns the four-character year prefix of the release date,
// or "" when the date is absent or too short.
func (a *Album) ReleaseYear() string {
	if len(a.ReleaseDate) < 4 {
		return ""
	}
	return a.ReleaseDate[:4]
}

// AlbumUpdate carries a partial album edit. Nil fields are left untouched.
// AddedAt is immutable after creation and has no update field.
type AlbumUpdate struct {
	Title       *string     `json:"title,omitempty"`
	Artists     *StringList `json:"artist,omitempty"`
	ReleaseDate *string     `json:"releaseDate,omitempty"`
	Formats     *StringList `json:"format,omitempty"`
	Status      *string     `json:"status,omitempty"`
	Rating      *int        `json:"rating,omitempty"`
	Genres      *StringList `json:"genres,omitempty"`
	CoverURL    *string     `json:"coverUrl,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
}

// HistoryEntry records one listen of one album. ListenedAt is an
// epoch-millisecond timestamp; the album's lastListened field is always
// the maximum ListenedAt over its surviving entries. Title, Artists and
// CoverURL are snapshots taken at log time, so the entry stays renderable
// after the album is edited or deleted.
type HistoryEntry struct {
	ID         string     `gorm:"primaryKey" json:"id"`
	OwnerID    string     `gorm:"index;not null" json:"ownerId"`
	AlbumID    string     `gorm:"index;not null" json:"albumId"`
	Title      string     `json:"title"`
	Artists    StringList `gorm:"type:text" json:"artist"`
	CoverURL   string     `json:"coverUrl,omitempty"`
	ListenedAt int64      `gorm:"not null;index" json:"listenedAt"`
	Note       string     `json:"note,omitempty"`
	CreatedAt  time.Time  `json:"-"`
}

// TableName returns the table name for HistoryEntry
func (HistoryEntry) TableName() string {
	return "history_entries"
}

// nowMillis returns the current time in epoch milliseconds
func nowMillis() int64 {
	return time.Now().UnixMilli()
}
