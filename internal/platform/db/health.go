package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/healthsync/healthsync/pkg/response"
)

const healthTimeout = 5 * time.Second

// PoolStats represents database connection pool statistics.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// Pinger is a dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DependencyStatus is the reported state of one checked dependency.
type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthReport is the data payload of /health/db.
type HealthReport struct {
	Status   string                      `json:"status"`
	Database DependencyStatus            `json:"database"`
	Pool     *PoolStats                  `json:"pool,omitempty"`
	Deps     map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// Check pings the database and every optional dependency. Only a database
// failure makes the report unhealthy; optional dependencies are reported as
// degraded.
func Check(ctx context.Context, database Pinger, optional map[string]Pinger) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	report := HealthReport{Status: "healthy", Database: DependencyStatus{Status: "up"}}
	if err := database.Ping(ctx); err != nil {
		report.Status = "unhealthy"
		report.Database = DependencyStatus{Status: "down", Error: err.Error()}
	}

	if len(optional) > 0 {
		report.Deps = make(map[string]DependencyStatus, len(optional))
		for name, p := range optional {
			if p == nil {
				report.Deps[name] = DependencyStatus{Status: "disabled"}
				continue
			}
			if err := p.Ping(ctx); err != nil {
				report.Deps[name] = DependencyStatus{Status: "down", Error: err.Error()}
				if report.Status == "healthy" {
					report.Status = "degraded"
				}
				continue
			}
			report.Deps[name] = DependencyStatus{Status: "up"}
		}
	}

	return report
}

// HealthHandler serves /health/db: pool statistics, database ping, and the
// state of optional dependencies such as the cache.
func HealthHandler(pool *pgxpool.Pool, optional map[string]Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		report := Check(c.Request().Context(), pool, optional)
		report.Pool = GetPoolStats(pool)
		return writeReport(c, report)
	}
}

func writeReport(c echo.Context, report HealthReport) error {
	if report.Status == "unhealthy" {
		if report.Pool != nil {
			report.Pool.Healthy = false
		}
		return c.JSON(http.StatusServiceUnavailable, response.Envelope{
			Success: false,
			Data:    report,
			Message: "Database unavailable",
		})
	}
	return c.JSON(http.StatusOK, response.Envelope{Success: true, Data: report})
}
