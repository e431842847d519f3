package database

import (
	"context"
	"time"
)

// Health status values.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is a point-in-time report of database health.
type HealthStatus struct {
	Status          string        `json:"status"`
	PingLatency     time.Duration `json:"ping_latency"`
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Idle            int           `json:"idle"`
	Errors          []string      `json:"errors,omitempty"`
	CheckedAt       time.Time     `json:"checked_at"`
}

// Health pings the pool and inspects its stats.
func (m *Manager) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{Status: StatusHealthy, CheckedAt: time.Now().UTC()}

	start := time.Now()
	if err := m.db.PingContext(ctx); err != nil {
		status.Status = StatusUnhealthy
		status.Errors = append(status.Errors, err.Error())
		return status
	}
	status.PingLatency = time.Since(start)

	stats := m.db.Stats()
	status.OpenConnections = stats.OpenConnections
	status.InUse = stats.InUse
	status.Idle = stats.Idle

	// A saturated pool still answers pings but will stall under load.
	if stats.MaxOpenConnections > 0 && stats.InUse == stats.MaxOpenConnections {
		status.Status = StatusDegraded
		status.Errors = append(status.Errors, "connection pool saturated")
	}

	return status
}
