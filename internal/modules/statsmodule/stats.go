package statsmodule

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/mantonx/sonar/internal/modules/shelfmodule"
)

// topArtistCount caps the top-artists list.
const topArtistCount = 5

// FormatBreakdown is one slice of the format distribution.
type FormatBreakdown struct {
	Format  string  `json:"format"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// ArtistCount pairs an artist with the number of collection albums
// crediting them.
type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int    `json:"count"`
}

// DecadeCount is one bar of the release-decade histogram.
type DecadeCount struct {
	Decade string `json:"decade"`
	Count  int    `json:"count"`
}

// RatingCount is one bar of the rating histogram.
type RatingCount struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

// CollectionStats summarizes the owned collection. Wishlist and pre-order
// records are excluded from every figure.
type CollectionStats struct {
	TotalAlbums   int               `json:"totalAlbums"`
	UniqueArtists int               `json:"uniqueArtists"`
	Formats       []FormatBreakdown `json:"formats"`
	TopArtists    []ArtistCount     `json:"topArtists"`
	Decades       []DecadeCount     `json:"decades"`
	Ratings       []RatingCount     `json:"ratings"`
	Unrated       int               `json:"unrated"`
}

// Compute aggregates collection statistics from a shelf snapshot.
func Compute(albums []shelfmodule.Album) *CollectionStats {
	stats := &CollectionStats{
		Formats:    []FormatBreakdown{},
		TopArtists: []ArtistCount{},
		Decades:    []DecadeCount{},
		Ratings:    []RatingCount{},
	}

	formatCounts := make(map[string]int)
	artistCounts := make(map[string]int)
	decadeCounts := make(map[string]int)
	ratingCounts := make(map[int]int)

	for i := range albums {
		album := &albums[i]
		if album.EffectiveStatus() != shelfmodule.StatusCollection {
			continue
		}
		stats.TotalAlbums++

		for _, format := range album.Formats {
			formatCounts[format]++
		}
		for _, artist := range album.Artists {
			artistCounts[artist]++
		}
		if decade := decadeOf(album.ReleaseYear()); decade != "" {
			decadeCounts[decade]++
		}
		if album.Rating > 0 {
			ratingCounts[album.Rating]++
		} else {
			stats.Unrated++
		}
	}

	stats.UniqueArtists = len(artistCounts)
	stats.Formats = formatBreakdown(formatCounts, stats.TotalAlbums)
	stats.TopArtists = topArtists(artistCounts)
	stats.Decades = decadeHistogram(decadeCounts)
	stats.Ratings = ratingHistogram(ratingCounts)
	return stats
}

// decadeOf maps a four-digit year to its decade label, e.g. "1990s".
func decadeOf(year string) string {
	if year == "" {
		return ""
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%ds", (y/10)*10)
}

func formatBreakdown(counts map[string]int, total int) []FormatBreakdown {
	out := make([]FormatBreakdown, 0, len(counts))
	for format, count := range counts {
		entry := FormatBreakdown{Format: format, Count: count}
		if total > 0 {
			entry.Percent = float64(count) / float64(total) * 100
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Format < out[j].Format
	})
	return out
}

func topArtists(counts map[string]int) []ArtistCount {
	out := make([]ArtistCount, 0, len(counts))
	for artist, count := range counts {
		out = append(out, ArtistCount{Artist: artist, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Artist < out[j].Artist
	})
	if len(out) > topArtistCount {
		out = out[:topArtistCount]
	}
	return out
}

func decadeHistogram(counts map[string]int) []DecadeCount {
	out := make([]DecadeCount, 0, len(counts))
	for decade, count := range counts {
		out = append(out, DecadeCount{Decade: decade, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Decade < out[j].Decade
	})
	return out
}

func ratingHistogram(counts map[int]int) []RatingCount {
	out := make([]RatingCount, 0, len(counts))
	for rating, count := range counts {
		out = append(out, RatingCount{Rating: rating, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Rating > out[j].Rating
	})
	return out
}
