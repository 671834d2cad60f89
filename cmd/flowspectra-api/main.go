package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FlowSpectra/internal/api"
	"FlowSpectra/internal/config"
	"FlowSpectra/internal/logging"
	"FlowSpectra/internal/query"
	"FlowSpectra/internal/reducer"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration YAML")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := logging.Setup(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	// Stored-run routes need the first enabled ClickHouse writer
	var querier query.Querier
	if chCfg, ok := cfg.ClickHouse(); ok {
		querier, err = query.NewClickHouseQuerier(chCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create querier")
		}
	} else {
		log.Warn().Msg("No enabled ClickHouse writer found in config, stored-run routes are disabled")
	}

	router := api.NewRouter(querier, reducer.Options{
		Strict:          cfg.Reducer.Strict,
		AllowDuplicates: cfg.Reducer.AllowDuplicates,
	})

	// Start HTTP server
	server := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("API server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Str("addr", server.Addr).Msg("Could not listen")
		}
	}()

	// Start gRPC health service
	lis, err := net.Listen("tcp", cfg.API.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.API.GRPCAddr).Msg("Failed to listen for gRPC")
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	go func() {
		log.Info().Str("addr", lis.Addr().String()).Msg("gRPC health server starting")
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatal().Err(err).Msg("Failed to serve gRPC")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("API server shutting down...")

	healthServer.Shutdown()
	grpcServer.GracefulStop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("API server exited")
}
