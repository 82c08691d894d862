package metrics

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// RegisterDbPoolStats exports the connection pool statistics of a database
// handle. Registering the same name twice is a no-op.
func RegisterDbPoolStats(name string, db *sql.DB) {
	err := prometheus.Register(collectors.NewDBStatsCollector(db, name))
	if err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			logrus.WithError(err).Warnf("failed registering db pool stats for %v", name)
		}
	}
}

// StartMetricsServer serves the prometheus registry on a dedicated listener
// until ctx is cancelled.
func StartMetricsServer(ctx context.Context, logger logrus.FieldLogger, host string, port string) error {
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "9090"
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           GetMetricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}

	go func() {
		logger.Infof("metrics server listening on %v", srv.Addr)
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Error serving metrics")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	return nil
}

func GetMetricsHandler() http.Handler {
	return promhttp.Handler()
}
