package models

import "time"

// EngineMetrics is a point-in-time snapshot of engine activity, served to
// administrators alongside the Prometheus endpoint.
type EngineMetrics struct {
	LessonsBooked            uint64    `json:"lessons_booked"`
	ConflictsDetected        uint64    `json:"conflicts_detected"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
