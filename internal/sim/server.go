package sim

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/logger"
)

// NewMetricsServer returns a server exposing /metrics and /health.
func NewMetricsServer(addr string) *http.Server {
	var mux http.ServeMux
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &http.Server{
		Addr:              addr,
		Handler:           &mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ListenAndServe runs srv until ctx is done.
func ListenAndServe(ctx context.Context, srv *http.Server) {
	log := logger.Named("metrics")

	go func() {
		<-ctx.Done()
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Warn("shutting down the server failed", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}()

	log.Info("starting server", zap.String("addr", srv.Addr))
	err := srv.ListenAndServe()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		log.Info("stopping server", zap.String("addr", srv.Addr))
		return
	}
	log.Warn("server stopped", zap.String("addr", srv.Addr), zap.Error(err))
}
