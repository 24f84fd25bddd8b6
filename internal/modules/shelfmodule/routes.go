package shelfmodule

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mantonx/sonar/internal/apiroutes"
)

// OwnerHeader identifies the acting user. Authentication lives in front
// of this service; the header value is trusted as-is.
const OwnerHeader = "X-Sonar-User"

// DefaultOwner is used when no owner header is present, covering the
// single-user deployment case.
const DefaultOwner = "default"

// OwnerID extracts the acting owner from the request.
func OwnerID(c *gin.Context) string {
	if owner := strings.TrimSpace(c.GetHeader(OwnerHeader)); owner != "" {
		return owner
	}
	return DefaultOwner
}

// RegisterRoutes sets up the shelf API endpoints
func (m *Module) RegisterRoutes(router *gin.Engine) {
	shelf := router.Group("/api/shelf")
	{
		shelf.GET("", m.handleListAlbums)
		shelf.GET("/view", m.handleDeriveView)
		shelf.GET("/filters", m.handleFilterOptions)
		shelf.POST("", m.handleCreateAlbum)
		shelf.GET("/:id", m.handleGetAlbum)
		shelf.PATCH("/:id", m.handleUpdateAlbum)
		shelf.DELETE("/:id", m.handleDeleteAlbum)
		shelf.POST("/:id/reorder", m.handleReorderAlbum)
	}

	apiroutes.Register("/api/shelf", "GET", "List the owner's albums, newest first")
	apiroutes.Register("/api/shelf/view", "GET", "Derive the filtered, sorted, optionally grouped view")
	apiroutes.Register("/api/shelf/filters", "GET", "List distinct artists, years and genres for filter pickers")
	apiroutes.Register("/api/shelf", "POST", "Add an album to the shelf")
	apiroutes.Register("/api/shelf/:id", "GET", "Fetch a single album")
	apiroutes.Register("/api/shelf/:id", "PATCH", "Partially update an album")
	apiroutes.Register("/api/shelf/:id", "DELETE", "Remove an album, keeping its listen history")
	apiroutes.Register("/api/shelf/:id/reorder", "POST", "Move an album to a new manual position")
}

func (m *Module) handleListAlbums(c *gin.Context) {
	albums, err := m.manager.Snapshot(OwnerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"albums": albums, "count": len(albums)})
}

// ViewParamsFromQuery builds view parameters from query strings, leaving
// absent values at their neutral defaults.
func ViewParamsFromQuery(c *gin.Context) ViewParams {
	params := DefaultViewParams()
	params.Search = c.Query("search")
	if v := c.Query("sortBy"); v != "" {
		params.SortBy = SortMode(v)
	}
	if v := c.Query("groupBy"); v != "" {
		params.GroupBy = GroupMode(v)
	}
	if v := c.Query("format"); v != "" {
		params.Filters.Format = v
	}
	if v := c.Query("artist"); v != "" {
		params.Filters.Artist = v
	}
	if v := c.Query("year"); v != "" {
		params.Filters.Year = v
	}
	if v := c.Query("genre"); v != "" {
		params.Filters.Genre = v
	}
	if v := c.Query("status"); v != "" {
		params.Filters.Status = v
	}
	return params
}

func (m *Module) handleDeriveView(c *gin.Context) {
	params := ViewParamsFromQuery(c)

	albums, err := m.manager.Snapshot(OwnerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	view, err := DeriveView(albums, params)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"view":            view,
		"reorderEligible": IsReorderEligible(params),
	})
}

func (m *Module) handleFilterOptions(c *gin.Context) {
	albums, err := m.manager.Snapshot(OwnerID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, CollectFilterOptions(albums))
}

func (m *Module) handleGetAlbum(c *gin.Context) {
	album, err := m.manager.Get(OwnerID(c), c.Param("id"))
	if errors.Is(err, ErrAlbumNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, album)
}

func (m *Module) handleCreateAlbum(c *gin.Context) {
	var album Album
	if err := c.ShouldBindJSON(&album); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid album payload"})
		return
	}

	created, err := m.manager.Create(OwnerID(c), &album)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (m *Module) handleUpdateAlbum(c *gin.Context) {
	var update AlbumUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update payload"})
		return
	}

	album, err := m.manager.Update(OwnerID(c), c.Param("id"), &update)
	if errors.Is(err, ErrAlbumNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, album)
}

func (m *Module) handleDeleteAlbum(c *gin.Context) {
	err := m.manager.Delete(OwnerID(c), c.Param("id"))
	if errors.Is(err, ErrAlbumNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "album deleted"})
}

type reorderRequest struct {
	TargetIndex *int `json:"targetIndex" binding:"required"`

	// The view the client was dragging in must still be the neutral
	// custom-order view, otherwise the target index is meaningless.
	SortBy  string `json:"sortBy"`
	GroupBy string `json:"groupBy"`
	Search  string `json:"search"`
	Format  string `json:"format"`
	Artist  string `json:"artist"`
	Year    string `json:"year"`
	Genre   string `json:"genre"`
	Status  string `json:"status"`
}

func (r *reorderRequest) viewParams() ViewParams {
	params := DefaultViewParams()
	if r.SortBy != "" {
		params.SortBy = SortMode(r.SortBy)
	}
	if r.GroupBy != "" {
		params.GroupBy = GroupMode(r.GroupBy)
	}
	params.Search = r.Search
	if r.Format != "" {
		params.Filters.Format = r.Format
	}
	if r.Artist != "" {
		params.Filters.Artist = r.Artist
	}
	if r.Year != "" {
		params.Filters.Year = r.Year
	}
	if r.Genre != "" {
		params.Filters.Genre = r.Genre
	}
	if r.Status != "" {
		params.Filters.Status = r.Status
	}
	return params
}

func (m *Module) handleReorderAlbum(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetIndex == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "targetIndex is required"})
		return
	}
	if !IsReorderEligible(req.viewParams()) {
		c.JSON(http.StatusConflict, gin.H{"error": ErrReorderNotEligible.Error()})
		return
	}

	album, err := m.manager.Reorder(OwnerID(c), c.Param("id"), *req.TargetIndex)
	if errors.Is(err, ErrAlbumNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "album not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, album)
}
