package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/async"
	"github.com/joseph-ayodele/pnl-tracker/internal/ingest"
	"github.com/joseph-ayodele/pnl-tracker/internal/server"
)

var (
	serveWatchDir    string
	serveNoWatch     bool
	watchInitialScan bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC API, the metrics endpoint and the screenshot watcher",
	Long: `Serve pnltracker.v1.TradesService on GRPC_ADDR and Prometheus metrics on
METRICS_ADDR. When WATCH_DIR (or --watch) is set, new screenshots dropped
there are recognized and recorded in the background.`,
	RunE: runServe,
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Record trades from screenshots as they appear in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		serveWatchDir = args[0]
		return runWatchOnly(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, watchCmd)
	serveCmd.Flags().StringVar(&serveWatchDir, "watch", "", "Directory to watch for screenshots (default from WATCH_DIR)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "Do not watch any directory")
	watchCmd.Flags().BoolVar(&watchInitialScan, "initial-scan", false, "Also process screenshots already in the directory")
}

// startIngest builds the worker queue and, when dir is set, the watcher
// feeding it. The returned stop function drains the queue.
func startIngest(ctx context.Context, a *app, reg prometheus.Registerer, dir string) (*async.Queue, func(), error) {
	proc, err := newProcessor(reg)
	if err != nil {
		return nil, nil, err
	}
	handler := ingest.NewImageHandler(proc, a.book, constants.ParseDuplicateAction(cfg.Ingest.DuplicateAction), logger)
	q := async.NewQueue(handler, logger,
		async.WithWorkers(cfg.Ingest.Workers),
		async.WithQueueSize(cfg.Ingest.QueueSize),
		async.WithProcessTimeout(cfg.Ingest.Timeout),
	)
	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Ingest.Timeout)
		defer cancel()
		q.Shutdown(ctx)
	}

	if dir != "" {
		events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{dir},
			InitialScan: watchInitialScan,
			SkipHidden:  true,
			Debounce:    cfg.Ingest.Debounce,
		}, logger)
		if err != nil {
			stop()
			return nil, nil, err
		}
		go ingest.Feed(ctx, events, q, logger)
		go func() {
			for err := range errs {
				logger.Warn("watcher error", "error", err)
			}
		}()
	}
	return q, stop, nil
}

func runWatchOnly(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	_, drain, err := startIngest(ctx, a, nil, serveWatchDir)
	if err != nil {
		return err
	}
	logger.Info("watching for screenshots", "dir", serveWatchDir)
	<-ctx.Done()
	drain()
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	dir := serveWatchDir
	if dir == "" {
		dir = cfg.Ingest.WatchDir
	}
	if serveNoWatch {
		dir = ""
	}
	q, drain, err := startIngest(ctx, a, reg, dir)
	if err != nil {
		return err
	}
	defer drain()

	// the API gets its own processor so metrics are not registered twice
	proc, err := newProcessor(nil)
	if err != nil {
		return err
	}
	svc := server.NewTradesService(a.book, proc, q, logger)
	grpcServer, hs := server.NewGRPCServer(svc, logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("pnl-tracker listening", "addr", cfg.Server.GRPCAddr, "watch_dir", dir)
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server stopped", "error", err)
	}

	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	return nil
}
