package models

import "time"

// CorsConfig is the single "default" CORS policy row. The API server's CORS
// reloader reads it and `agenda-configure cors set` writes it.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"` // comma-separated, deduplicated on write
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"` // seconds
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
