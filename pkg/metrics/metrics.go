// Package metrics holds the Prometheus collectors used across the binaries.
// Every constructor accepts a nil registerer and returns a no-op recorder.
package metrics

const namespace = "pizzeria"

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
