package event

import (
	"context"
	"encoding/json"

	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every domain event it receives to the audit
// logger, with the JSON-encoded event attached
type AuditLogHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewAuditLogHandler creates an audit handler
func NewAuditLogHandler(serializer *EventSerializer, log *zap.Logger) *AuditLogHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditLogHandler{
		serializer: serializer,
		logger:     log.Named("audit"),
	}
}

// EventTypes returns nil so the handler receives all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(event)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.Any("payload", json.RawMessage(payload)),
	}
	if requestID := logger.GetRequestID(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if userID := logger.GetUserID(ctx); userID != "" {
		fields = append(fields, zap.String("actor_id", userID))
	}

	h.logger.Info("domain event", fields...)
	return nil
}
