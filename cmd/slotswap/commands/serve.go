package commands

import (
	"context"

	"slotswap/internal/api"
	"slotswap/internal/health"
	"slotswap/internal/storage"
	"slotswap/internal/swaps/events"
	"slotswap/pkg/app"
	"slotswap/pkg/config"
	"slotswap/pkg/kafka"
	kafka_middleware "slotswap/pkg/kafka/middleware"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(ServiceName)
			cfg.SetStorage()
			defer cfg.GracefulShutdown()

			if autoMigrate {
				ctx, cancel := context.WithTimeout(cmd.Context(), migrationTimeout)
				err := runMigrations(ctx, cfg)
				cancel()
				if err != nil {
					cfg.Log.Error("Migration failed", "backend", cfg.StorageBackend, "error", err)
					return err
				}
			}

			store, err := storage.New(cfg)
			if err != nil {
				cfg.Log.Error("Failed to initialize storage", "backend", cfg.StorageBackend, "error", err)
				return err
			}

			publisher, closePublisher := newPublisher(cfg)
			services := api.NewServices(cfg, store, publisher)

			application := app.NewApplication(cfg)
			application.SetApp(
				health.NewHealthHandler(store.Pinger, store.Backend, cfg.Log),
				services.Handlers(cfg)...,
			)
			application.OnShutdown(closePublisher)
			application.Run()
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run storage migrations before serving")
	return cmd
}

// newPublisher returns the Kafka swap event publisher, or a no-op one when
// Kafka is disabled or the producer cannot be created.
func newPublisher(cfg *config.Config) (events.Publisher, func()) {
	if cfg.Kafka == nil || !cfg.Kafka.Enabled {
		cfg.Log.Info("Kafka disabled, swap events will not be published")
		return events.NewNoopPublisher(), func() {}
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.Kafka.SwapTopic, cfg.Kafka.SwapDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Error("Failed to create Kafka producer, swap events disabled", "error", err)
		return events.NewNoopPublisher(), func() {}
	}
	if cfg.Kafka.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Swap events enabled", "topic", cfg.Kafka.SwapTopic, "dlq_topic", cfg.Kafka.SwapDLQTopic)
	return events.NewKafkaPublisher(producer, cfg.Log), func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}
}
