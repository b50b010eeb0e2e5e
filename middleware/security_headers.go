package middleware

import "github.com/gin-gonic/gin"

// SecurityHeadersConfig overrides individual security headers. An
// empty field keeps the default; set a field to "-" to suppress the
// header entirely.
type SecurityHeadersConfig struct {
	ContentTypeOptions      string
	FrameOptions            string
	ReferrerPolicy          string
	StrictTransportSecurity string
	CacheControl            string
}

// SecurityHeaders sets conservative security headers on every
// response. Auth responses are never cacheable: a shared cache holding
// a Set-Cookie response is a session leak.
func SecurityHeaders() gin.HandlerFunc {
	return SecurityHeadersWithConfig(SecurityHeadersConfig{})
}

// SecurityHeadersWithConfig sets security headers with overrides.
func SecurityHeadersWithConfig(cfg SecurityHeadersConfig) gin.HandlerFunc {
	headers := map[string]string{
		"X-Content-Type-Options":    pick(cfg.ContentTypeOptions, "nosniff"),
		"X-Frame-Options":           pick(cfg.FrameOptions, "DENY"),
		"Referrer-Policy":           pick(cfg.ReferrerPolicy, "no-referrer"),
		"Strict-Transport-Security": pick(cfg.StrictTransportSecurity, "max-age=31536000; includeSubDomains"),
		"Cache-Control":             pick(cfg.CacheControl, "no-store"),
	}

	return func(c *gin.Context) {
		for name, value := range headers {
			if value != "-" {
				c.Header(name, value)
			}
		}
		c.Next()
	}
}

func pick(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
