package main

import (
	"errors"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"

	"stack/config"
	"stack/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $"+config.EnvPath+")")
	listen := flag.String("listen", "", "gRPC listen address")
	metrics := flag.String("metrics", "", "metrics listen address; empty uses the config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	if *metrics != "" {
		cfg.Server.Metrics = *metrics
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.Level(cfg.Server.LogLevel)}))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		logger.Info("serving metrics", slog.String("addr", cfg.Server.Metrics))
		if err := http.ListenAndServe(cfg.Server.Metrics, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()

	lis, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	defer lis.Close()
	s := grpc.NewServer()
	defer s.Stop()
	server.RegisterStackServiceServer(s, server.New(logger, reg))

	logger.Info("starting server", slog.String("addr", cfg.Server.Listen))
	if err := s.Serve(lis); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
