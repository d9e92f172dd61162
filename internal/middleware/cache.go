package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

const (
	responseMetaKey = "response_meta"
	cacheHitKey     = "cache_hit"
	cacheKeyKey     = "cache_key"
	cacheTTLKey     = "cache_ttl_seconds"
	rangeStartKey   = "range_start"
	rangeEndKey     = "range_end"

	// CacheHeader mirrors the cache outcome for clients that skip the body.
	CacheHeader = "X-Cache"
)

// WithResponseMeta starts an empty meta map per request and stamps the
// processing time once the handler chain returns.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
		meta := ensureMeta(c)
		if _, exists := meta["processing_time_ms"]; !exists {
			meta["processing_time_ms"] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheStatus records how a cached read was served. The key and TTL are
// only reported when known.
func SetCacheStatus(c *gin.Context, status models.CacheStatus) {
	meta := ensureMeta(c)
	meta[cacheHitKey] = status.Hit
	if status.Key != "" {
		meta[cacheKeyKey] = status.Key
	}
	if status.TTL > 0 {
		meta[cacheTTLKey] = int64(status.TTL / time.Second)
	}
	if c != nil {
		if status.Hit {
			c.Header(CacheHeader, "HIT")
		} else {
			c.Header(CacheHeader, "MISS")
		}
	}
}

// SetRange records the inclusive date range a schedule response covers.
func SetRange(c *gin.Context, start, end caldate.Date) {
	meta := ensureMeta(c)
	meta[rangeStartKey] = start.String()
	meta[rangeEndKey] = end.String()
}

// ExtractMeta returns the metadata map stored on the context.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	if meta, exists := c.Get(responseMetaKey); exists {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	return nil
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := make(map[string]interface{})
	c.Set(responseMetaKey, meta)
	return meta
}
