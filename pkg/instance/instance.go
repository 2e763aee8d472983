package instance

import (
	"os"

	"github.com/angelmondragon/pizzeria-backend/pkg/env"
)

// GetID returns the process instance identifier: PIZZERIA_INSTANCE_ID, then
// DYNO, then the hostname.
func GetID() string {
	if id := env.Get("PIZZERIA_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
