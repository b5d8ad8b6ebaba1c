package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/booking-assistant/internal/config"
	"github.com/kirillkom/booking-assistant/internal/core/ports"
	"github.com/kirillkom/booking-assistant/internal/core/usecase"
	"github.com/kirillkom/booking-assistant/internal/infrastructure/calendar/postgres"
	"github.com/kirillkom/booking-assistant/internal/infrastructure/catalog/yamlcatalog"
	"github.com/kirillkom/booking-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/booking-assistant/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	Dialogue ports.DialogueService
	Calendar ports.CalendarGateway
	Events   ports.BookingEventQueue
	Catalog  ports.CatalogSource

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	calendar := postgres.NewGatewayWithOptions(db, postgres.Options{ResilienceExecutor: executor})
	if err := calendar.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init event queue: %w", err)
	}

	dialogue := usecase.NewDialogueUseCase(calendar, queue, catalog, usecase.DialogueConfig{
		DefaultTimezone:       cfg.DefaultTimezone,
		EscalateAfterFailures: cfg.EscalateAfterFailures,
		AlternativeLimit:      cfg.AlternativeLimit,
		GatewayTimeout:        time.Duration(cfg.GatewayTimeoutSeconds) * time.Second,
	}, time.Now)

	return &App{
		Config: cfg,

		Dialogue: dialogue,
		Calendar: calendar,
		Events:   queue,
		Catalog:  catalog,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func loadCatalog(path string) (ports.CatalogSource, error) {
	if path == "" {
		return yamlcatalog.Default(), nil
	}
	catalog, err := yamlcatalog.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return catalog, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
