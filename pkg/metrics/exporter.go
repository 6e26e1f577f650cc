package metrics

import (
	"fmt"
	"net/http"

	"github.com/downfa11-org/logunit/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(AppendsTotal, AppendBytesTotal, OverwritesTotal, ReadsTotal, RecoveryTruncations)
	prometheus.MustRegister(CompactedSegments, CompactedBytes, OpenSegments, TrimMark, GlobalTail, SyncLatency)
}

// StartMetricsServer serves /metrics in the background and returns the server for shutdown.
func StartMetricsServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		util.Info("Prometheus exporter listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			util.Error("failed to start metrics server: %v", err)
		}
	}()
	return srv
}
