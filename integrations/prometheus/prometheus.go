// Package prometheus exposes the engine's metrics over HTTP.
//
// The scoring and rating counters themselves are registered by the
// packages that own them; this only serves the default registry.
package prometheus

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/MagnetarProjects/magnetar/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled = config.GenFlag[bool]("integrations.prometheus.enabled", false, "Enable Prometheus metrics")
	port    = config.GenFlag[int]("integrations.prometheus.port", 8097, "Prometheus metrics port")
)

// InitMetrics starts the metrics listener if the integration is enabled.
// It returns immediately; the server runs for the life of the process.
func InitMetrics() {
	if !enabled.Value() {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	go func() {
		slog.Info("Serving Prometheus metrics", slog.Int("port", port.Value()))
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port.Value()), mux); err != nil {
			slog.Error("Error with Prometheus metrics", slog.Any("err", err))
		}
	}()
}
