package kafka_middleware

import (
	"context"
	"slotswap/pkg/kafka"
	"slotswap/pkg/logger"
	"time"
)

func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"duration", time.Since(start),
		}

		if err != nil {
			log.WithContext(ctx).Error("Failed to publish Kafka message", append(attrs, "error", err)...)
			return err
		}
		log.WithContext(ctx).Debug("Published Kafka message", attrs...)
		return nil
	}
}
