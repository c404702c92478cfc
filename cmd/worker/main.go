package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jverhaegen/ledgerpilot/internal/bootstrap"
	"github.com/jverhaegen/ledgerpilot/internal/config"
	"github.com/jverhaegen/ledgerpilot/internal/observability/logging"
	"github.com/jverhaegen/ledgerpilot/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	observer := metrics.NewPipelineObserver(workerMetrics, serviceName)

	app, err := bootstrap.New(ctx, cfg, observer)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}

	processTimeout := time.Duration(cfg.ProcessTimeoutSeconds) * time.Second

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("worker subscribed", "subject", cfg.NATSSubject, "preset", cfg.Preset)
		return app.Queue.SubscribeDocumentScanned(gctx, func(handlerCtx context.Context, documentID string) error {
			workerMetrics.StartDocument()
			start := time.Now()

			if doc, err := app.Repo.GetByID(handlerCtx, documentID); err == nil {
				workerMetrics.ObserveQueueLag(serviceName, start.Sub(doc.CreatedAt))
			}

			processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
			defer cancel()

			err := app.ProcessUC.ProcessByID(processCtx, documentID)
			workerMetrics.FinishDocument(serviceName, time.Since(start), err)
			if err != nil {
				slog.Error("document processing failed", "document_id", documentID, "error", err)
			}
			return err
		})
	})

	if err := g.Wait(); err != nil {
		slog.Error("worker terminated", "error", err)
		os.Exit(1)
	}
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
