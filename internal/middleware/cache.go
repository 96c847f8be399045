package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// CacheControl marks a response publicly cacheable for maxAgeSeconds. Used on
// catalog reads that are identical for every caller.
func CacheControl(maxAgeSeconds int) gin.HandlerFunc {
	value := "public, max-age=" + strconv.Itoa(maxAgeSeconds)
	return func(c *gin.Context) {
		c.Header("Cache-Control", value)
		c.Next()
	}
}
