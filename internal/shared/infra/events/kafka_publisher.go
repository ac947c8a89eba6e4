package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	productDomain "github.com/davicafu/inventorylab/internal/product/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// KafkaPublisher publica sobres de eventos en el topic indicado.
// El writer es genérico (sin topic fijo); el topic viaja en cada mensaje y
// la key de partición es el aggregate_id, preservando el orden por stream.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, env sharedEvents.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(env.AggregateID),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Error publishing to Kafka",
			zap.String("topic", topic),
			zap.String("aggregate_id", env.AggregateID),
			zap.Error(err),
		)
		return err
	}

	p.log.Debug("Event published successfully",
		zap.String("topic", topic),
		zap.String("event_type", env.EventType),
		zap.Int("version", env.Version),
	)
	return nil
}

// Verificación estática
var _ productDomain.EventPublisher = (*KafkaPublisher)(nil)
