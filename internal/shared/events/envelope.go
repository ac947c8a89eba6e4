package events

import (
	"encoding/json"
	"time"
)

// Envelope es el formato de cable de todos los eventos de dominio.
// Estos son contratos de integración entre el lado de escritura y el de lectura,
// NO entidades del dominio. El payload es específico de cada variante.
type Envelope struct {
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Version     int             `json:"version"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Record es la forma persistida de un evento en el event store.
// Una fila por evento; append-only, nunca se actualiza ni se borra.
// El orden dentro de un stream lo da Version; el orden global entre
// agregados es solo el orden de inserción (Seq).
type Record struct {
	Seq           int64           `json:"seq"`
	Timestamp     time.Time       `json:"timestamp"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int             `json:"version"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
}

// Envelope reconstruye el sobre de cable desde la forma persistida.
func (r Record) Envelope() Envelope {
	return Envelope{
		EventType:   r.EventType,
		AggregateID: r.AggregateID,
		Version:     r.Version,
		OccurredAt:  r.Timestamp,
		Payload:     r.Payload,
	}
}
