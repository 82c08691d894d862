package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/JiaJunDeng5930/ChainContest-sub000/db"
	"github.com/JiaJunDeng5930/ChainContest-sub000/handlers/api"
	"github.com/JiaJunDeng5930/ChainContest-sub000/handlers/middleware"
	"github.com/JiaJunDeng5930/ChainContest-sub000/metrics"
	"github.com/JiaJunDeng5930/ChainContest-sub000/services"
	"github.com/JiaJunDeng5930/ChainContest-sub000/types"
	"github.com/JiaJunDeng5930/ChainContest-sub000/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file, if empty string defaults will be used")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, *configPath)
	if err != nil {
		logrus.Fatalf("error reading config file: %v", err)
	}
	utils.Config = cfg
	logWriter, logger := utils.InitLogger()
	defer logWriter.Dispose()

	logger.WithFields(logrus.Fields{
		"config":  *configPath,
		"version": utils.GetBuildVersion(),
	}).Printf("starting")

	db.MustInitDB()
	err = db.ApplyEmbeddedDbSchema(-2)
	if err != nil {
		logger.Fatalf("error initializing db schema: %v", err)
	}
	metrics.RegisterDbPoolStats("reader", db.ReaderDb.DB)

	err = services.InitContestService(logger.WithField("service", "contest-query"))
	if err != nil {
		logger.Fatalf("error initializing contest service: %v", err)
	}

	if cfg.Metrics.Enabled && !cfg.Metrics.Public {
		err = metrics.StartMetricsServer(ctx, logger.WithField("module", "metrics"), cfg.Metrics.Host, cfg.Metrics.Port)
		if err != nil {
			logger.Fatalf("error starting metrics server: %v", err)
		}
	}

	webserver, err := startWebserver(logger)
	if err != nil {
		logger.Fatalf("error starting webserver: %v", err)
	}

	utils.WaitForCtrlC()
	logger.Println("exiting...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
	defer shutdownCancel()
	if err := webserver.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("error shutting down webserver")
	}
	db.MustCloseDB()
}

func startWebserver(logger logrus.FieldLogger) (*http.Server, error) {
	router := mux.NewRouter()

	if utils.Config.Api.Enabled {
		rateLimiter := middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Limit:          utils.Config.Api.DefaultRateLimit,
			Burst:          utils.Config.Api.DefaultRateLimitBurst,
			Disabled:       utils.Config.Api.DisableDefaultRateLimit,
			WhitelistedIPs: utils.Config.Api.WhitelistedIPs,
		})

		// hydrating contest queries fan out into several store reads
		middleware.SetEndpointCost("/api/v1/contests/query", 2)

		apiRouter := router.PathPrefix("/api").Subrouter()
		apiRouter.Use(middleware.CallCostMiddleware, rateLimiter.Middleware)
		api.RegisterRoutes(apiRouter)
	}

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	if utils.Config.Metrics.Enabled && utils.Config.Metrics.Public {
		router.Handle("/metrics", metrics.GetMetricsHandler())
	}

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseHandler(middleware.NewCorsMiddleware(utils.Config.Api.CorsOrigins)(router))

	srv := &http.Server{
		Addr:         utils.Config.Server.Host + ":" + utils.Config.Server.Port,
		WriteTimeout: utils.Config.Server.HttpWriteTimeout,
		ReadTimeout:  utils.Config.Server.HttpReadTimeout,
		IdleTimeout:  utils.Config.Server.HttpIdleTimeout,
		Handler:      n,
	}

	listener, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, err
	}

	logger.Printf("http server listening on %v", srv.Addr)
	go func() {
		defer utils.HandleSubroutinePanic("api server")
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Error serving api")
		}
	}()

	return srv, nil
}
