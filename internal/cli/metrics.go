package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// metricsServer exposes a registry on /metrics
type metricsServer struct {
	httpServer *http.Server
}

func newMetricsRouter(reg *prometheus.Registry) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// startMetricsServer serves reg on addr until Shutdown is called
func startMetricsServer(addr string, reg *prometheus.Registry) *metricsServer {
	s := &metricsServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           newMetricsRouter(reg),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	go func() {
		log.Infof(" > metrics listening on: [%s]", addr)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server, listen and serve: %s", err)
		}
	}()
	return s
}

func (s *metricsServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Warnf("metrics server shutdown: %s", err)
	}
}
