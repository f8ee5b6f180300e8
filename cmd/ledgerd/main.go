package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	ledgerapp "github.com/finledger/backend/internal/application/ledger"
	"github.com/finledger/backend/internal/domain/shared"
	"github.com/finledger/backend/internal/infrastructure/cache"
	"github.com/finledger/backend/internal/infrastructure/config"
	"github.com/finledger/backend/internal/infrastructure/event"
	"github.com/finledger/backend/internal/infrastructure/logger"
	"github.com/finledger/backend/internal/infrastructure/persistence"
	"github.com/finledger/backend/internal/infrastructure/refdata"
	"github.com/finledger/backend/internal/infrastructure/telemetry"
)

// ledgerd wires the ledger core and runs its background workers: the outbox
// processor that delivers appended events to the bus, and the projection
// handlers that keep the read models current. Command dispatch and queries
// are library surfaces consumed by embedding services.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting ledgerd",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.TraceEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize database connection with the zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}

	// Event serialization and type registry
	serializer := event.NewEventSerializer()
	event.RegisterLedgerEvents(serializer)

	// Event bus
	bus := event.NewInMemoryEventBus(log)
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Idempotency store for projection handlers
	idempotencyStore, err := cache.NewIdempotencyStore(cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Read repositories and projections
	invoiceReads := persistence.NewGormInvoiceReadRepository(db.DB)
	paymentReads := persistence.NewGormPaymentReadRepository(db.DB)

	projections := event.WrapHandlersWithIdempotency(
		[]shared.EventHandler{
			ledgerapp.NewInvoiceProjection(invoiceReads, log),
			ledgerapp.NewPaymentProjection(paymentReads, log),
		},
		idempotencyStore,
		log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			Enabled: true,
			TTL:     cfg.Event.IdempotencyTTL,
		}),
	)
	for _, h := range projections {
		bus.Subscribe(h)
	}

	// Event store, snapshots and aggregate repositories
	eventStore := persistence.NewGormEventStore(db.DB, serializer)
	snapshots := persistence.NewGormSnapshotStore(db.DB)
	invoices := ledgerapp.NewInvoiceRepository(eventStore, snapshots, cfg.EventStore.SnapshotEvery, log)
	payments := ledgerapp.NewPaymentRepository(eventStore, snapshots, cfg.EventStore.SnapshotEvery, log)

	// Reference data collaborators
	taxRates, err := refdata.NewStaticTaxRateLookup(cfg.Ledger.TaxRates)
	if err != nil {
		log.Fatal("Failed to load tax rate table", zap.Error(err))
	}
	docNumbers := refdata.NewHashDocumentNumberGenerator(cfg.Ledger.DocumentPrefix)
	parties := refdata.NewGormPartyDirectory(db.DB)

	// Command handlers
	registry := ledgerapp.NewRegistry(log)
	registry.Register(
		ledgerapp.NewCreateInvoiceHandler(invoices, taxRates, parties, log),
		ledgerapp.NewApproveInvoiceHandler(invoices, docNumbers, log),
		ledgerapp.NewCancelInvoiceHandler(invoices, log),
		ledgerapp.NewCreatePaymentHandler(payments, invoices, log),
		ledgerapp.NewCompletePaymentHandler(payments, invoices, ledgerapp.CoordinatorConfig{
			MaxAttempts:  cfg.Coordinator.MaxAttempts,
			RetryBackoff: cfg.Coordinator.RetryBackoff,
		}, log),
		ledgerapp.NewFailPaymentHandler(payments, log),
		ledgerapp.NewCancelPaymentHandler(payments, log),
		ledgerapp.NewReconcilePaymentHandler(payments, log),
	)
	log.Info("Command registry ready",
		zap.Int("max_attempts", cfg.Coordinator.MaxAttempts),
		zap.Int64("snapshot_every", cfg.EventStore.SnapshotEvery),
	)

	// Outbox processor delivers appended events to the bus
	outboxRepo := event.NewGormOutboxRepository(db.DB)
	processor := event.NewOutboxProcessor(outboxRepo, bus, serializer, event.OutboxProcessorConfig{
		BatchSize:        cfg.Event.BatchSize,
		PollInterval:     cfg.Event.PollInterval,
		CleanupEnabled:   cfg.Event.CleanupEnabled,
		CleanupRetention: cfg.Event.CleanupRetention,
		CleanupInterval:  time.Hour,
	}, log)
	if cfg.Event.ProcessorEnabled {
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	} else {
		log.Warn("Outbox processor disabled, appended events will not be delivered")
	}

	log.Info("ledgerd started")
	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cfg.Event.ProcessorEnabled {
		if err := processor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}

	log.Info("ledgerd stopped")
}
