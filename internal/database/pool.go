package database

import (
	"context"
	"log/slog"
	"time"
)

const (
	healthPingTimeout = 5 * time.Second

	// Pool usage above this share of MaxOpenConns is reported as saturation.
	saturationRatio = 0.9
	slowWaitTotal   = time.Second
)

// PoolStats - снимок состояния пула соединений
type PoolStats struct {
	MaxOpenConns int           `json:"max_open_connections"`
	OpenConns    int           `json:"open_connections"`
	InUse        int           `json:"in_use"`
	Idle         int           `json:"idle"`
	WaitCount    int64         `json:"wait_count"`
	WaitDuration time.Duration `json:"wait_duration"`
}

// Saturated reports whether almost every allowed connection is busy.
func (s PoolStats) Saturated() bool {
	return s.MaxOpenConns > 0 && float64(s.InUse) > float64(s.MaxOpenConns)*saturationRatio
}

// SlowWaits reports whether callers spent noticeable time waiting for a connection.
func (s PoolStats) SlowWaits() bool {
	return s.WaitCount > 0 && s.WaitDuration > slowWaitTotal
}

type HealthCheck struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
	Stats        PoolStats     `json:"stats"`
	Timestamp    time.Time     `json:"timestamp"`
}

func (db *DB) GetPoolStats() PoolStats {
	s := db.Stats()
	return PoolStats{
		MaxOpenConns: s.MaxOpenConnections,
		OpenConns:    s.OpenConnections,
		InUse:        s.InUse,
		Idle:         s.Idle,
		WaitCount:    s.WaitCount,
		WaitDuration: s.WaitDuration,
	}
}

// HealthCheck pings the database; /health answers 503 when it is unhealthy.
func (db *DB) HealthCheck(ctx context.Context) HealthCheck {
	start := time.Now()
	hc := HealthCheck{Status: "healthy", Timestamp: start.UTC(), Stats: db.GetPoolStats()}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		hc.Status = "unhealthy"
		hc.Error = err.Error()
		slog.Error("Database health check failed", "error", err)
	}
	hc.ResponseTime = time.Since(start)
	return hc
}

// WarnOnPressure logs when the pool looks saturated. Called by the sweep job
// after each run.
func (db *DB) WarnOnPressure() {
	stats := db.GetPoolStats()
	if stats.Saturated() {
		slog.Warn("Database pool saturated", "in_use", stats.InUse, "max_open", stats.MaxOpenConns)
	}
	if stats.SlowWaits() {
		slog.Warn("Database connection waits are slow", "wait_count", stats.WaitCount, "wait_duration", stats.WaitDuration)
	}
}
