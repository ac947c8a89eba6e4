package events

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/davicafu/inventorylab/internal/projection/application"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
	sharedInfraEvents "github.com/davicafu/inventorylab/internal/shared/infra/events"
)

// ViewConsumer es el suscriptor lógico del read model: deserializa los
// sobres que llegan del broker y se los pasa al proyector.
type ViewConsumer struct {
	projector *application.Projector
	log       *zap.Logger
}

func NewViewConsumer(projector *application.Projector, log *zap.Logger) *ViewConsumer {
	return &ViewConsumer{projector: projector, log: log}
}

func (c *ViewConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var env sharedEvents.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		c.log.Warn("Failed to unmarshal event envelope", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.projector.Apply(ctx, env); err != nil {
		c.log.Warn("Failed to project event",
			zap.String("event_type", env.EventType),
			zap.String("aggregate_id", env.AggregateID),
			zap.Int("version", env.Version),
			zap.Error(err),
		)
	}
}

// Verificación estática
var _ sharedInfraEvents.MessageHandler = (*ViewConsumer)(nil)
