// Command fieldreportd serves the fieldreport HTTP API: offline-first save
// and history for technician service reports, report submission with PDF
// delivery, and the report archive.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fieldreport/internal/api"
	"fieldreport/internal/auth"
	"fieldreport/internal/blob"
	"fieldreport/internal/config"
	"fieldreport/internal/core"
	"fieldreport/internal/observability"
	httptransport "fieldreport/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs, err := core.OpenDocumentStore(ctx)
	if err != nil {
		logger.Error("open document store", "error", err)
		os.Exit(1)
	}
	kv, err := core.OpenDeviceKV()
	if err != nil {
		logger.Error("open device storage", "error", err)
		os.Exit(1)
	}
	blobs, err := blob.Open(ctx)
	if err != nil {
		logger.Error("open report archive", "error", err)
		os.Exit(1)
	}
	logger.Info("storage ready", "blob_driver", blobs.Driver())

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(observability.NewRecorder()),
	}
	if cfg.TraceLogPath != "" {
		traceFile, err := os.OpenFile(cfg.TraceLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logger.Error("open trace log", "path", cfg.TraceLogPath, "error", err)
			os.Exit(1)
		}
		defer func() { _ = traceFile.Close() }()
		opts = append(opts, core.WithTracer(core.NewJSONTracer(traceFile)))
	}

	service := core.NewService(docs, kv, blobs, nil, opts...)
	service.Pipeline().OnUploadFailure(observability.RecordUploadFailure)

	authMgr := auth.NewManager(auth.AnonymousProvider{}, kv, logger)

	handler := api.NewHandler(service, authMgr, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	requestLog := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Debug("request", "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}, requestLog(mux))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("fieldreportd listening", "address", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
