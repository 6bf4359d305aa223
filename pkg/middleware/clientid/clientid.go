package clientid

import (
	"regexp"

	"github.com/gin-gonic/gin"
)

const (
	headerKey  = "X-Client-ID"
	contextKey = "client_id"
)

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// Middleware records the editor client identifier sent by the front end.
// Malformed identifiers are ignored so per-client state is never keyed on arbitrary input.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerKey)
		if id != "" && validID.MatchString(id) {
			c.Set(contextKey, id)
		}
		c.Next()
	}
}

// Value returns the client ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
