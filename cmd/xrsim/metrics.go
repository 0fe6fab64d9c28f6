package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readHeaderTimeout = 10 * time.Second

// exporter serves a registry on /metrics.
type exporter struct {
	addr   string
	server *http.Server
}

// startExporter listens on addr and serves reg in the background. Listen
// errors are returned; serve errors are logged.
func startExporter(addr string, reg *prometheus.Registry, log *slog.Logger) (*exporter, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	e := &exporter{
		addr: ln.Addr().String(),
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}
	go func() {
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("xrsim: metrics server", slog.String("err", err.Error()))
		}
	}()
	log.Info("xrsim: serving metrics", slog.String("addr", e.addr))
	return e, nil
}

// Shutdown stops the server.
func (e *exporter) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
