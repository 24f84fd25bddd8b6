package shelfmodule

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupShelfAPI(t *testing.T) (*gin.Engine, *Module) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Album{}, &HistoryEntry{}))

	module := NewModule(db, &mockEventBus{})
	router := gin.New()
	module.RegisterRoutes(router)
	return router, module
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, owner string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestShelfAPI_CreateAndList(t *testing.T) {
	router, _ := setupShelfAPI(t)

	w := doJSON(t, router, "POST", "/api/shelf", gin.H{
		"title":  "Discovery",
		"artist": []string{"Daft Punk"},
	}, "alice")
	require.Equal(t, http.StatusCreated, w.Code)

	var created Album
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)

	w = doJSON(t, router, "GET", "/api/shelf", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Albums []Album `json:"albums"`
		Count  int     `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Equal(t, 1, listing.Count)

	// Another owner sees an empty shelf.
	w = doJSON(t, router, "GET", "/api/shelf", nil, "bob")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Zero(t, listing.Count)
}

func TestShelfAPI_CreateRejectsMissingTitle(t *testing.T) {
	router, _ := setupShelfAPI(t)

	w := doJSON(t, router, "POST", "/api/shelf", gin.H{"artist": []string{"Nobody"}}, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShelfAPI_ViewReportsEligibility(t *testing.T) {
	router, _ := setupShelfAPI(t)

	w := doJSON(t, router, "GET", "/api/shelf/view", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		ReorderEligible bool `json:"reorderEligible"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.ReorderEligible)

	w = doJSON(t, router, "GET", "/api/shelf/view?search=ok", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.ReorderEligible)
}

func TestShelfAPI_ViewRejectsUnknownSortMode(t *testing.T) {
	router, _ := setupShelfAPI(t)

	w := doJSON(t, router, "GET", "/api/shelf/view?sortBy=velocity", nil, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShelfAPI_Reorder(t *testing.T) {
	router, module := setupShelfAPI(t)
	seedOrderedShelf(t, module.manager, 10, 20, 30)

	w := doJSON(t, router, "POST", "/api/shelf/C/reorder", gin.H{"targetIndex": 0}, "owner")
	require.Equal(t, http.StatusOK, w.Code)

	var moved Album
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moved))
	require.NotNil(t, moved.CustomOrder)
	assert.Equal(t, float64(-99990), *moved.CustomOrder)

	w = doJSON(t, router, "POST", "/api/shelf/C/reorder", gin.H{}, "owner")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "POST", "/api/shelf/missing/reorder", gin.H{"targetIndex": 0}, "owner")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShelfAPI_ReorderRejectsIneligibleView(t *testing.T) {
	router, module := setupShelfAPI(t)
	seedOrderedShelf(t, module.manager, 10, 20, 30)

	w := doJSON(t, router, "POST", "/api/shelf/C/reorder",
		gin.H{"targetIndex": 0, "sortBy": "artist"}, "owner")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, "POST", "/api/shelf/C/reorder",
		gin.H{"targetIndex": 0, "search": "ok"}, "owner")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestShelfAPI_UpdateAndDelete(t *testing.T) {
	router, module := setupShelfAPI(t)

	created, err := module.manager.Create("alice", &Album{Title: "Discovery"})
	require.NoError(t, err)

	w := doJSON(t, router, "PATCH", fmt.Sprintf("/api/shelf/%s", created.ID), gin.H{"rating": 5}, "alice")
	require.Equal(t, http.StatusOK, w.Code)
	var updated Album
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 5, updated.Rating)

	w = doJSON(t, router, "DELETE", fmt.Sprintf("/api/shelf/%s", created.ID), nil, "alice")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "DELETE", fmt.Sprintf("/api/shelf/%s", created.ID), nil, "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOwnerID_DefaultsWithoutHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/api/shelf", nil)
	assert.Equal(t, DefaultOwner, OwnerID(c))

	c.Request.Header.Set(OwnerHeader, " alice ")
	assert.Equal(t, "alice", OwnerID(c))
}
