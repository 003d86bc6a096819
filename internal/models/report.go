package models

import "time"

// GeneralReport summarises platform-wide totals.
type GeneralReport struct {
	TotalUsers       int              `json:"totalUsuarios"`
	TotalProjects    int              `json:"totalProyectos"`
	TotalEvaluations int              `json:"totalEvaluaciones"`
	UsersByRole      map[UserRole]int `json:"usuariosPorRol"`
	GeneratedAt      time.Time        `json:"generadoEn"`
}

// EvaluationsReport breaks evaluations down per lifecycle state.
type EvaluationsReport struct {
	Total       int                     `json:"total"`
	ByState     map[EvaluationState]int `json:"porEstado"`
	GeneratedAt time.Time               `json:"generadoEn"`
}

// SystemMetrics is a lightweight runtime snapshot for admin dashboards.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
