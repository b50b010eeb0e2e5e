package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the request ID in both
// directions.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns a unique identifier to each request for tracing
// and audit correlation. An ID supplied by a trusted upstream proxy is
// reused; otherwise a new UUID is generated. The ID is stored in the
// context and echoed in the response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}

		c.Set(KeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
