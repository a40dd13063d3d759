package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fintrackhq/fintrack-backend/pkg/observability"
)

// EventsTopic is the Kafka topic sibling services publish business events to.
const EventsTopic = "business-events"

// Consumer translates business-event envelopes from the broker into Emit
// calls. It is the transport realization of the emit boundary for producers
// living in other processes; in-process callers use Service.Emit directly.
type Consumer struct {
	service *Service
	logger  *observability.Logger
}

func NewConsumer(service *Service, logger *observability.Logger) *Consumer {
	return &Consumer{service: service, logger: logger}
}

// Handle processes one raw envelope. Unknown event tags and bad payloads are
// reported as errors; duplicates are silently absorbed by the emit path.
func (c *Consumer) Handle(ctx context.Context, key string, value []byte) error {
	var req EmitRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	n, err := c.service.Emit(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to emit %s: %w", req.Event, err)
	}
	if n != nil {
		c.logger.Info("notification created from event",
			"event", string(req.Event), "tenant_id", req.TenantID,
			"notification_id", n.ID)
	}
	return nil
}
