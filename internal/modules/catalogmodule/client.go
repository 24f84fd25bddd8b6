package catalogmodule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mantonx/sonar/internal/config"
	"github.com/mantonx/sonar/internal/logger"
)

// ErrNotConfigured is returned when the catalog client is missing API
// credentials.
var ErrNotConfigured = errors.New("catalog client credentials not configured")

// ErrAlbumNotFound is returned when the catalog has no album for the id.
var ErrAlbumNotFound = errors.New("catalog album not found")

// CatalogAlbum is a catalog search result shaped for direct prefill of a
// shelf album form.
type CatalogAlbum struct {
	CatalogID   string   `json:"catalogId"`
	Title       string   `json:"title"`
	Artists     []string `json:"artist"`
	ReleaseDate string   `json:"releaseDate,omitempty"`
	CoverURL    string   `json:"coverUrl,omitempty"`
	TrackCount  int      `json:"trackCount,omitempty"`
}

// Client looks up album metadata against a Spotify-compatible web API
// using the client-credentials flow. Access tokens are cached until
// shortly before expiry; raw API responses are cached in the store.
type Client struct {
	cfg        config.CatalogConfig
	httpClient *http.Client
	cache      *ResponseCache

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a catalog client.
func NewClient(cfg config.CatalogConfig, cache *ResponseCache) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		cache:      cache,
	}
}

// Configured reports whether API credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// accessToken returns a valid bearer token, refreshing via the
// client-credentials grant when the cached one is expired or near expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request returned %d: %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	c.token = token.AccessToken
	// Refresh a minute early so in-flight requests never race expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - time.Minute)
	logger.Debug("Catalog access token refreshed, valid until %s", c.tokenExpiry.Format(time.RFC3339))
	return c.token, nil
}

// apiGet performs an authenticated GET, serving from and filling the
// response cache keyed by the request path and query.
func (c *Client) apiGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	cacheKey := path
	if len(query) > 0 {
		cacheKey += "?" + query.Encode()
	}
	if c.cache != nil {
		if data, ok := c.cache.Get(cacheKey); ok {
			return data, nil
		}
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	requestURL := c.cfg.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrAlbumNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog request returned %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Put(cacheKey, data, time.Duration(c.cfg.CacheDurationHours)*time.Hour)
	}
	return data, nil
}

type apiAlbum struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int    `json:"total_tracks"`
	Images      []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`
}

type searchResponse struct {
	Albums struct {
		Items []apiAlbum `json:"items"`
	} `json:"albums"`
}

func (a *apiAlbum) toCatalogAlbum() CatalogAlbum {
	album := CatalogAlbum{
		CatalogID:   a.ID,
		Title:       a.Name,
		ReleaseDate: a.ReleaseDate,
		TrackCount:  a.TotalTracks,
	}
	for _, artist := range a.Artists {
		album.Artists = append(album.Artists, artist.Name)
	}
	// Images arrive largest first; the first one is the cover.
	if len(a.Images) > 0 {
		album.CoverURL = a.Images[0].URL
	}
	return album
}

// SearchAlbums queries the catalog for albums matching the free-text query.
func (c *Client) SearchAlbums(ctx context.Context, queryText string) ([]CatalogAlbum, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return []CatalogAlbum{}, nil
	}

	query := url.Values{}
	query.Set("q", queryText)
	query.Set("type", "album")
	query.Set("limit", strconv.Itoa(c.cfg.SearchLimit))

	data, err := c.apiGet(ctx, "/search", query)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]CatalogAlbum, 0, len(parsed.Albums.Items))
	for i := range parsed.Albums.Items {
		results = append(results, parsed.Albums.Items[i].toCatalogAlbum())
	}
	return results, nil
}

// GetAlbum fetches a single album by its catalog id.
func (c *Client) GetAlbum(ctx context.Context, catalogID string) (*CatalogAlbum, error) {
	if catalogID == "" {
		return nil, ErrAlbumNotFound
	}

	data, err := c.apiGet(ctx, "/albums/"+url.PathEscape(catalogID), nil)
	if err != nil {
		return nil, err
	}

	var parsed apiAlbum
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode album response: %w", err)
	}

	album := parsed.toCatalogAlbum()
	return &album, nil
}

// albumURLPattern matches share links like
// https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy?si=...
var albumURLPattern = regexp.MustCompile(`(?i)/album/([A-Za-z0-9]+)`)

// ParseAlbumURL extracts the catalog album id from a share link. A bare
// id passes through unchanged.
func ParseAlbumURL(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", errors.New("album link is empty")
	}

	if match := albumURLPattern.FindStringSubmatch(link); match != nil {
		return match[1], nil
	}
	if !strings.ContainsAny(link, "/:?") {
		return link, nil
	}
	return "", fmt.Errorf("unrecognized album link: %s", link)
}

// LookupByURL resolves a share link to its album metadata.
func (c *Client) LookupByURL(ctx context.Context, link string) (*CatalogAlbum, error) {
	catalogID, err := ParseAlbumURL(link)
	if err != nil {
		return nil, err
	}
	return c.GetAlbum(ctx, catalogID)
}
