package gateway

import "github.com/gin-gonic/gin"

// Machine-readable error codes exposed to clients. Provider-specific
// detail and internal identifiers never leave the gateway; clients see
// only this taxonomy.
const (
	CodeInvalidAssertion       = "invalid_assertion"
	CodeExpiredAssertion       = "expired_assertion"
	CodeProviderUnreachable    = "provider_unreachable"
	CodeSessionNotFound        = "session_not_found"
	CodeSessionExpired         = "session_expired"
	CodeCSRFMismatch           = "csrf_mismatch"
	CodeRateLimited            = "rate_limited"
	CodeConcurrentModification = "concurrent_modification"
	CodeInternal               = "internal_error"
)

func abortError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}
