package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const headerRequestID = "X-Request-ID"

// RequestID tags every request with an identifier so log lines across
// the submit path can be correlated. A client-supplied X-Request-ID is
// kept; otherwise a time-ordered UUID is minted.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(headerRequestID)
		if rid == "" {
			if id, err := uuid.NewV7(); err == nil {
				rid = id.String()
			} else {
				rid = uuid.NewString()
			}
		}

		c.Set("request_id", rid)
		c.Header(headerRequestID, rid)
		c.Next()
	}
}
