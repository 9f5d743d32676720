package middleware

import (
	"net/http"

	"go.uber.org/zap"

	logpkg "github.com/benvon/smart-agenda/internal/logger"
	"github.com/benvon/smart-agenda/internal/request"
)

// auditEvents maps the statuses worth a security log line to their event name
var auditEvents = map[int]string{
	http.StatusTooManyRequests:       "rate_limit_violation",
	http.StatusRequestEntityTooLarge: "oversized_request",
	http.StatusUnsupportedMediaType:  "unsupported_media_type",
}

// Audit logs rejected requests that may indicate abuse
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := newStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			event, ok := auditEvents[wrapped.statusCode]
			if !ok {
				return
			}
			logger.Warn(event,
				zap.Int("status_code", wrapped.statusCode),
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
			)
		})
	}
}
