package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Las constantes de los tipos de evento se definen aquí, como valores string.
const (
	ProductCreatedType = "ProductCreated"
	StockUpdatedType   = "StockUpdated"
)

// Topics fijos por tipo de evento.
const (
	StockTopic   = "stock-events"
	DefaultTopic = "default-events"
)

// Event es la unión cerrada de variantes de eventos de dominio.
// Añadir una nueva variante es: un struct nuevo, un case en DecodeEvent
// y un case en TopicFor. Nunca lookup por string ni reflexión.
type Event interface {
	EventType() string
	EventAggregateID() string
}

// ProductCreated se emite una única vez al crear el agregado.
type ProductCreated struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Price         float64   `json:"price"`
	StoreID       string    `json:"store_id"`
	InitialAmount int       `json:"initial_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

func (e ProductCreated) EventType() string        { return ProductCreatedType }
func (e ProductCreated) EventAggregateID() string { return e.ID }

// StockUpdated registra un movimiento de stock. NewAmount es el valor
// absoluto resultante, lo que hace idempotente su aplicación en proyecciones.
type StockUpdated struct {
	ID        string    `json:"id"`
	Operation string    `json:"operation"` // purchase, restock, set
	Amount    int       `json:"amount"`
	NewAmount int       `json:"new_amount"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e StockUpdated) EventType() string        { return StockUpdatedType }
func (e StockUpdated) EventAggregateID() string { return e.ID }

// TopicFor resuelve el topic de destino para un tipo de evento.
// Tipos desconocidos van al topic por defecto, nunca se descartan.
func TopicFor(eventType string) string {
	switch eventType {
	case ProductCreatedType, StockUpdatedType:
		return StockTopic
	default:
		return DefaultTopic
	}
}

// EncodeEvent serializa una variante a su payload JSON.
func EncodeEvent(e Event) (json.RawMessage, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	return data, nil
}

// DecodeEvent deserializa el payload de un sobre a su variante tipada.
func DecodeEvent(eventType string, payload json.RawMessage) (Event, error) {
	switch eventType {
	case ProductCreatedType:
		var e ProductCreated
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return e, nil
	case StockUpdatedType:
		var e StockUpdated
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}

// NewEnvelope construye el sobre de cable para un evento con su versión en el stream.
func NewEnvelope(e Event, version int, occurredAt time.Time) (Envelope, error) {
	payload, err := EncodeEvent(e)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:   e.EventType(),
		AggregateID: e.EventAggregateID(),
		Version:     version,
		OccurredAt:  occurredAt,
		Payload:     payload,
	}, nil
}
