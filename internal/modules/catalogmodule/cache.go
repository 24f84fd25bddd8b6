package catalogmodule

import (
	"time"

	"gorm.io/gorm"

	"github.com/mantonx/sonar/internal/logger"
)

// CachedResponse stores one raw catalog API response keyed by request
// path and query.
type CachedResponse struct {
	ID        uint      `gorm:"primaryKey"`
	CacheKey  string    `gorm:"uniqueIndex;not null"`
	Data      []byte    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// TableName returns the table name for CachedResponse
func (CachedResponse) TableName() string {
	return "catalog_cache"
}

// ResponseCache is a store-backed cache of raw catalog responses, so
// repeated lookups of the same album survive process restarts without
// burning API quota.
type ResponseCache struct {
	db *gorm.DB
}

// NewResponseCache creates a response cache.
func NewResponseCache(db *gorm.DB) *ResponseCache {
	return &ResponseCache{db: db}
}

// Get returns the cached response body when present and unexpired.
func (c *ResponseCache) Get(cacheKey string) ([]byte, bool) {
	var cached CachedResponse
	err := c.db.Where("cache_key = ? AND expires_at > ?", cacheKey, time.Now()).
		First(&cached).Error
	if err != nil {
		return nil, false
	}
	return cached.Data, true
}

// Put stores a response body with the given lifetime, replacing any
// previous entry for the key.
func (c *ResponseCache) Put(cacheKey string, data []byte, ttl time.Duration) {
	c.db.Where("cache_key = ?", cacheKey).Delete(&CachedResponse{})
	err := c.db.Create(&CachedResponse{
		CacheKey:  cacheKey,
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	}).Error
	if err != nil {
		logger.Warn("Failed to cache catalog response: %v", err)
	}
}

// PurgeExpired removes expired cache rows and returns how many were dropped.
func (c *ResponseCache) PurgeExpired() (int64, error) {
	result := c.db.Where("expires_at <= ?", time.Now()).Delete(&CachedResponse{})
	return result.RowsAffected, result.Error
}
