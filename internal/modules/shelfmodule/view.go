package shelfmodule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortMode selects the comparator applied in the view pipeline.
type SortMode string

const (
	SortCustom      SortMode = "custom"
	SortAddedAt     SortMode = "addedAt"
	SortRating      SortMode = "rating"
	SortReleaseDate SortMode = "releaseDate"
	SortArtist      SortMode = "artist"
	SortTitle       SortMode = "title"
)

// GroupMode selects the optional partitioning applied after sorting.
type GroupMode string

const (
	GroupNone   GroupMode = "none"
	GroupArtist GroupMode = "artist"
	GroupYear   GroupMode = "year"
	GroupGenre  GroupMode = "genre"
	GroupFormat GroupMode = "format"
	GroupStatus GroupMode = "status"
)

// FilterAll is the neutral filter value matching every album.
const FilterAll = "All"

// Group labels for albums missing the grouped-on field
const (
	LabelUnknownArtist = "Unknown Artist"
	LabelUnknownYear   = "Unknown Year"
	LabelNoGenre       = "No Genre"
)

// Filters holds one value per filterable field; FilterAll disables a field.
type Filters struct {
	Format string `json:"format" form:"format"`
	Artist string `json:"artist" form:"artist"`
	Year   string `json:"year" form:"year"`
	Genre  string `json:"genre" form:"genre"`
	Status string `json:"status" form:"status"`
}

// NeutralFilters returns filters that match every album.
func NeutralFilters() Filters {
	return Filters{
		Format: FilterAll,
		Artist: FilterAll,
		Year:   FilterAll,
		Genre:  FilterAll,
		Status: FilterAll,
	}
}

// neutral reports whether every filter is at its neutral value.
func (f Filters) neutral() bool {
	return f.Format == FilterAll &&
		f.Artist == FilterAll &&
		f.Year == FilterAll &&
		f.Genre == FilterAll &&
		f.Status == FilterAll
}

// ViewParams are the complete inputs of the view pipeline besides the
// collection itself.
type ViewParams struct {
	Filters Filters   `json:"filters"`
	Search  string    `json:"search"`
	SortBy  SortMode  `json:"sortBy"`
	GroupBy GroupMode `json:"groupBy"`
}

// DefaultViewParams returns the neutral parameter set: custom order, no
// grouping, no search, all filters off.
func DefaultViewParams() ViewParams {
	return ViewParams{
		Filters: NeutralFilters(),
		SortBy:  SortCustom,
		GroupBy: GroupNone,
	}
}

// Validate rejects unknown enum values. Silent comparator fallback would
// mask caller bugs, so bad parameters are loud errors.
func (p ViewParams) Validate() error {
	switch p.SortBy {
	case SortCustom, SortAddedAt, SortRating, SortReleaseDate, SortArtist, SortTitle:
	default:
		return fmt.Errorf("unknown sort mode: %q", p.SortBy)
	}
	switch p.GroupBy {
	case GroupNone, GroupArtist, GroupYear, GroupGenre, GroupFormat, GroupStatus:
	default:
		return fmt.Errorf("unknown group mode: %q", p.GroupBy)
	}
	return nil
}

// ViewGroup is one partition of a grouped view.
type ViewGroup struct {
	Label  string  `json:"label"`
	Albums []Album `json:"albums"`
}

// ViewResult is the exact sequence the presentation layer renders: either
// a flat ordered list or an ordered list of labeled groups.
type ViewResult struct {
	Albums  []Album     `json:"albums,omitempty"`
	Groups  []ViewGroup `json:"groups,omitempty"`
	Grouped bool        `json:"grouped"`
}

// DeriveView runs the full pipeline: search, filter, sort, group. It is a
// pure function of its inputs (the collection slice is never mutated) and is
// recomputed wholesale on every snapshot push.
func DeriveView(albums []Album, params ViewParams) (*ViewResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	result := filterAlbums(albums, params)
	sortAlbums(result, params.SortBy)

	if params.GroupBy == GroupNone {
		return &ViewResult{Albums: result}, nil
	}

	return &ViewResult{Groups: groupAlbums(result, params.GroupBy), Grouped: true}, nil
}

// artistsOf returns the canonical artist list. Normalization happens at
// the store boundary, but the pipeline tolerates records that slipped in
// with the legacy joined-string shape.
func artistsOf(album *Album) StringList {
	return NormalizeArtists(album.Artists)
}

func filterAlbums(albums []Album, params ViewParams) []Album {
	result := make([]Album, 0, len(albums))
	search := strings.ToLower(strings.TrimSpace(params.Search))

	for i := range albums {
		album := albums[i]

		if search != "" && !matchesSearch(&album, search) {
			continue
		}
		if params.Filters.Format != FilterAll && !contains(album.Formats, params.Filters.Format) {
			continue
		}
		if params.Filters.Status != FilterAll && album.EffectiveStatus() != params.Filters.Status {
			continue
		}
		if params.Filters.Artist != FilterAll && !contains(artistsOf(&album), params.Filters.Artist) {
			continue
		}
		// Year filter is a prefix match: "1999" matches the release
		// date "1999-07-04".
		if params.Filters.Year != FilterAll && !strings.HasPrefix(album.ReleaseDate, params.Filters.Year) {
			continue
		}
		if params.Filters.Genre != FilterAll && !contains(album.Genres, params.Filters.Genre) {
			continue
		}

		result = append(result, album)
	}
	return result
}

// matchesSearch checks case-insensitive substring containment against the
// title and every artist name.
func matchesSearch(album *Album, search string) bool {
	if strings.Contains(strings.ToLower(album.Title), search) {
		return true
	}
	for _, artist := range artistsOf(album) {
		if strings.Contains(strings.ToLower(artist), search) {
			return true
		}
	}
	return false
}

func contains(list StringList, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}

func sortAlbums(albums []Album, mode SortMode) {
	var collator *collate.Collator
	if mode == SortArtist || mode == SortTitle {
		collator = collate.New(language.Und)
	}

	sort.SliceStable(albums, func(i, j int) bool {
		a, b := &albums[i], &albums[j]
		switch mode {
		case SortCustom:
			return a.EffectiveOrder() < b.EffectiveOrder()
		case SortAddedAt:
			return a.AddedAt > b.AddedAt
		case SortRating:
			return a.Rating > b.Rating
		case SortReleaseDate:
			return parseReleaseMillis(a.ReleaseDate) > parseReleaseMillis(b.ReleaseDate)
		case SortArtist:
			return collator.CompareString(a.PrimaryArtist(), b.PrimaryArtist()) < 0
		case SortTitle:
			return collator.CompareString(a.Title, b.Title) < 0
		}
		return false
	})
}

// parseReleaseMillis parses YYYY-MM-DD, YYYY-MM or YYYY release dates into
// epoch milliseconds. Absent or unparsable dates sort as epoch 0.
func parseReleaseMillis(date string) int64 {
	if date == "" {
		return 0
	}
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func groupAlbums(albums []Album, mode GroupMode) []ViewGroup {
	buckets := make(map[string][]Album)
	for i := range albums {
		key := groupKey(&albums[i], mode)
		buckets[key] = append(buckets[key], albums[i])
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	// Year groups run newest first
	if mode == GroupYear {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	groups := make([]ViewGroup, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, ViewGroup{Label: key, Albums: buckets[key]})
	}
	return groups
}

func groupKey(album *Album, mode GroupMode) string {
	switch mode {
	case GroupArtist:
		if primary := album.PrimaryArtist(); primary != "" {
			return primary
		}
		return LabelUnknownArtist
	case GroupYear:
		if year := album.ReleaseYear(); year != "" {
			return year
		}
		return LabelUnknownYear
	case GroupGenre:
		if len(album.Genres) > 0 {
			return album.Genres[0]
		}
		return LabelNoGenre
	case GroupFormat:
		if len(album.Formats) > 0 {
			return album.Formats[0]
		}
		return FormatDigital
	case GroupStatus:
		return album.EffectiveStatus()
	}
	return ""
}

// FilterOptions are the distinct values available for the filter comboboxes.
type FilterOptions struct {
	Artists []string `json:"artists"`
	Years   []string `json:"years"`
	Genres  []string `json:"genres"`
}

// CollectFilterOptions extracts the distinct artists, years and genres
// present in the collection. Artists and genres sort ascending, years
// descending (newest first).
func CollectFilterOptions(albums []Album) FilterOptions {
	artistSet := make(map[string]struct{})
	yearSet := make(map[string]struct{})
	genreSet := make(map[string]struct{})

	for i := range albums {
		for _, artist := range artistsOf(&albums[i]) {
			artistSet[artist] = struct{}{}
		}
		if year := albums[i].ReleaseYear(); year != "" {
			yearSet[year] = struct{}{}
		}
		for _, genre := range albums[i].Genres {
			if genre != "" {
				genreSet[genre] = struct{}{}
			}
		}
	}

	options := FilterOptions{
		Artists: sortedKeys(artistSet),
		Years:   sortedKeys(yearSet),
		Genres:  sortedKeys(genreSet),
	}
	// Newest year first
	for i, j := 0, len(options.Years)-1; i < j; i, j = i+1, j-1 {
		options.Years[i], options.Years[j] = options.Years[j], options.Years[i]
	}
	return options
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
