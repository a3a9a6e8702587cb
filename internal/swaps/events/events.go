package events

import (
	"context"
	"slotswap/pkg/kafka"
	"slotswap/pkg/logger"
	"slotswap/pkg/model"
	"time"
)

const (
	TypeSwapProposed = "swap.proposed"
	TypeSwapAccepted = "swap.accepted"
	TypeSwapRejected = "swap.rejected"

	SchemaVersion = "1"
	Source        = "slotswap"
)

// SwapEvent is the payload published for every swap lifecycle change.
type SwapEvent struct {
	RequestID     string           `json:"request_id"`
	Status        model.SwapStatus `json:"status"`
	RequesterID   string           `json:"requester_id"`
	TargetOwnerID string           `json:"target_owner_id"`
	OfferedSlotID string           `json:"offered_slot_id"`
	TargetSlotID  string           `json:"target_slot_id"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// Publisher announces committed swap transitions. Publishing never affects
// the outcome of the operation that triggered it.
type Publisher interface {
	Publish(ctx context.Context, eventType string, req *model.SwapRequest)
}

// TypeFor maps a request status to the event announcing it.
func TypeFor(status model.SwapStatus) string {
	switch status {
	case model.SwapAccepted:
		return TypeSwapAccepted
	case model.SwapRejected:
		return TypeSwapRejected
	default:
		return TypeSwapProposed
	}
}

func NewSwapEvent(req *model.SwapRequest) SwapEvent {
	occurred := req.CreatedAt
	if req.RespondedAt != nil {
		occurred = *req.RespondedAt
	}
	return SwapEvent{
		RequestID:     req.ID,
		Status:        req.Status,
		RequesterID:   req.RequesterID,
		TargetOwnerID: req.TargetOwnerID,
		OfferedSlotID: req.OfferedSlotID,
		TargetSlotID:  req.TargetSlotID,
		OccurredAt:    occurred,
	}
}

type kafkaPublisher struct {
	producer kafka.Publisher
	log      *logger.Logger
}

func NewKafkaPublisher(producer kafka.Publisher, log *logger.Logger) Publisher {
	return &kafkaPublisher{producer: producer, log: log}
}

func (p *kafkaPublisher) Publish(ctx context.Context, eventType string, req *model.SwapRequest) {
	log := p.log.WithContext(ctx)

	msg, err := kafka.NewMessage().
		WithKey(req.ID).
		WithValue(NewSwapEvent(req)).
		WithEventType(eventType).
		WithCorrelationID(logger.RequestIDFromContext(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
	if err != nil {
		log.Error("Failed to build swap event", "event_type", eventType, "request_id", req.ID, "error", err)
		return
	}

	if err := p.producer.Publish(context.WithoutCancel(ctx), msg); err != nil {
		log.Error("Failed to publish swap event", "event_type", eventType, "request_id", req.ID, "error", err)
		return
	}
	log.Debug("Swap event published", "event_type", eventType, "request_id", req.ID)
}

type noopPublisher struct{}

func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, *model.SwapRequest) {}
