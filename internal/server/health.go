package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthStatus classifies a health check outcome.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// HealthChecker probes one downstream dependency.
type HealthChecker func() CheckResult

// PingChecker wraps a ping function into a HealthChecker that reports latency.
func PingChecker(ping func() error) HealthChecker {
	return func() CheckResult {
		start := time.Now()
		if err := ping(); err != nil {
			return CheckResult{
				Status:  HealthStatusUnhealthy,
				Message: err.Error(),
				Latency: time.Since(start).String(),
			}
		}
		return CheckResult{
			Status:  HealthStatusHealthy,
			Latency: time.Since(start).String(),
		}
	}
}

type healthResponse struct {
	Status  HealthStatus           `json:"status"`
	Service string                 `json:"service"`
	Version string                 `json:"version"`
	Uptime  string                 `json:"uptime,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

func registerHealthRoutes(router *gin.Engine, opts Options) {
	started := time.Now()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse{
			Status:  HealthStatusHealthy,
			Service: opts.ServiceName,
			Version: opts.Version,
			Uptime:  time.Since(started).Round(time.Second).String(),
		})
	})
	router.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/readyz", func(c *gin.Context) {
		resp := healthResponse{
			Status:  HealthStatusHealthy,
			Service: opts.ServiceName,
			Version: opts.Version,
			Uptime:  time.Since(started).Round(time.Second).String(),
		}
		if len(opts.ReadyChecks) > 0 {
			resp.Checks = make(map[string]CheckResult, len(opts.ReadyChecks))
			for name, check := range opts.ReadyChecks {
				result := check()
				resp.Checks[name] = result
				if result.Status != HealthStatusHealthy {
					resp.Status = HealthStatusUnhealthy
				}
			}
		}
		code := http.StatusOK
		if resp.Status != HealthStatusHealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	})
}
