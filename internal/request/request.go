package request

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const tenantContextKey contextKey = "tenant"

// TenantHeader carries the caller's tenant ID
const TenantHeader = "X-Tenant-ID"

// TenantContextKey returns the context key used for the tenant. Exposed for tests that inject non-tenant values.
func TenantContextKey() contextKey { return tenantContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// WithTenant returns a context with the tenant attached.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantContextKey, tenantID)
}

// TenantFromContext returns the tenant from the request context. ok is false
// when the value is missing, of the wrong type or the nil UUID.
func TenantFromContext(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(tenantContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// ParseTenant reads and parses the tenant header.
func ParseTenant(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(r.Header.Get(TenantHeader)))
}
