package middleware

import "github.com/gin-gonic/gin"

const responseMetaKey = "response_meta"

// WithResponseMeta gives each request an empty meta object that handlers
// fill before writing the envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// RecordCache notes which cache entry the response was looked up in and
// whether it was served from there.
func RecordCache(c *gin.Context, key string, hit bool) {
	meta := ResponseMeta(c)
	meta["cache_key"] = key
	meta["cache_hit"] = hit
}

// ResponseMeta returns the meta object of the request. Without
// WithResponseMeta in the chain a fresh one is attached on first use.
func ResponseMeta(c *gin.Context) map[string]interface{} {
	if meta, ok := c.Get(responseMetaKey); ok {
		if typed, ok := meta.(map[string]interface{}); ok {
			return typed
		}
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}
