package observability

import (
	"fmt"
	"time"
)

// ToMap converts session metrics into a JSON-friendly map for response meta.
func (m SessionMetrics) ToMap() map[string]any {
	return map[string]any{
		"loads":       m.TotalLoads,
		"refreshes":   m.Refreshes,
		"failed":      m.FailedLoads,
		"cancels":     m.Cancels,
		"fetches":     m.TotalFetches,
		"latency_ms":  m.TotalLatency.Milliseconds(),
		"duration_ms": m.EndTime.Sub(m.StartTime).Milliseconds(),
	}
}

// SessionMetricsFromMap rebuilds metrics from a map produced by ToMap,
// including one that went through a JSON round-trip.
func SessionMetricsFromMap(data map[string]any) SessionMetrics {
	end := time.Now()
	return SessionMetrics{
		StartTime:    end.Add(-time.Duration(intValue(data["duration_ms"])) * time.Millisecond),
		EndTime:      end,
		TotalLoads:   intValue(data["loads"]),
		Refreshes:    intValue(data["refreshes"]),
		FailedLoads:  intValue(data["failed"]),
		Cancels:      intValue(data["cancels"]),
		TotalFetches: intValue(data["fetches"]),
		TotalLatency: time.Duration(intValue(data["latency_ms"])) * time.Millisecond,
	}
}

func intValue(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// FormatParts returns the non-empty summary fragments for a stats line.
func (m SessionMetrics) FormatParts() []string {
	var parts []string
	if m.TotalLoads > 0 {
		parts = append(parts, plural(m.TotalLoads, "load"))
	}
	if m.Refreshes > 0 {
		parts = append(parts, plural(m.Refreshes, "refresh"))
	}
	if m.FailedLoads > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", m.FailedLoads))
	}
	if m.Cancels > 0 {
		parts = append(parts, fmt.Sprintf("%d cancelled", m.Cancels))
	}
	if m.TotalFetches > 0 {
		parts = append(parts, plural(m.TotalFetches, "fetch"))
	}
	if m.TotalLatency > 0 {
		parts = append(parts, fmt.Sprintf("%dms loading", m.TotalLatency.Milliseconds()))
	}
	return parts
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	switch noun {
	case "refresh", "fetch":
		return fmt.Sprintf("%d %ses", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
