package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/benvon/smart-agenda/internal/request"
)

// Tenant requires a valid X-Tenant-ID header and attaches the tenant to the
// request context for handlers.
func Tenant(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, err := request.ParseTenant(r)
			if err != nil || tenantID == uuid.Nil {
				respondErrorJSON(w, r, http.StatusBadRequest, "Bad Request", "Missing or invalid "+request.TenantHeader+" header", logger)
				return
			}
			next.ServeHTTP(w, r.WithContext(request.WithTenant(r.Context(), tenantID)))
		})
	}
}
