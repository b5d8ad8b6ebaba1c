package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/booking-assistant/internal/bootstrap"
	"github.com/kirillkom/booking-assistant/internal/config"
	"github.com/kirillkom/booking-assistant/internal/core/domain"
	"github.com/kirillkom/booking-assistant/internal/core/usecase"
	"github.com/kirillkom/booking-assistant/internal/observability/logging"
	"github.com/kirillkom/booking-assistant/internal/observability/metrics"
)

const serviceName = "reminder-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	planner := usecase.NewReminderPlanner(time.Duration(cfg.ReminderLeadHours)*time.Hour, time.Now)

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Events.SubscribeBookingEvents(ctx, func(handlerCtx context.Context, event domain.BookingEvent) error {
		start := time.Now()
		workerMetrics.StartEvent()
		workerMetrics.ObserveQueueLag(serviceName, start.Sub(event.EmittedAt))

		handleErr := planner.Handle(handlerCtx, event)
		workerMetrics.FinishEvent(serviceName, string(event.Kind), time.Since(start), handleErr)
		return handleErr
	})
	if err != nil && ctx.Err() == nil {
		slog.Error("worker subscribe error", "error", err)
		os.Exit(1)
	}
}
