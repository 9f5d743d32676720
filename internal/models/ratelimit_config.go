package models

import "time"

// RatelimitConfig is the single "default" rate-limit policy row, read by the
// API server's limiter reloader and written by `agenda-configure ratelimit set`.
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"` // ulule limiter format, e.g. "5-S" or "100-M"
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
