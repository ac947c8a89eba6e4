package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicFor(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		expected  string
	}{
		{name: "ProductCreated va al topic de stock", eventType: ProductCreatedType, expected: StockTopic},
		{name: "StockUpdated va al topic de stock", eventType: StockUpdatedType, expected: StockTopic},
		{name: "tipo desconocido va al topic por defecto", eventType: "OrderShipped", expected: DefaultTopic},
		{name: "tipo vacío va al topic por defecto", eventType: "", expected: DefaultTopic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TopicFor(tt.eventType))
		})
	}
}

func TestEncodeDecode_ProductCreated(t *testing.T) {
	original := ProductCreated{
		ID:            "p-1",
		Name:          "Teclado mecánico",
		Description:   "switches rojos",
		Category:      "peripherals",
		Price:         79.99,
		StoreID:       "store-001",
		InitialAmount: 10,
		CreatedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	payload, err := EncodeEvent(original)
	require.NoError(t, err)

	decoded, err := DecodeEvent(ProductCreatedType, payload)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestEncodeDecode_StockUpdated(t *testing.T) {
	original := StockUpdated{
		ID:        "p-1",
		Operation: "purchase",
		Amount:    3,
		NewAmount: 7,
		Reason:    "pedido #42",
		UpdatedAt: time.Date(2025, 3, 2, 9, 30, 0, 0, time.UTC),
	}

	payload, err := EncodeEvent(original)
	require.NoError(t, err)

	decoded, err := DecodeEvent(StockUpdatedType, payload)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeEvent_UnknownType(t *testing.T) {
	_, err := DecodeEvent("OrderShipped", []byte(`{}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestNewEnvelope(t *testing.T) {
	occurred := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	evt := StockUpdated{ID: "p-9", Operation: "set", Amount: 50, NewAmount: 50, UpdatedAt: occurred}

	env, err := NewEnvelope(evt, 4, occurred)
	require.NoError(t, err)

	assert.Equal(t, StockUpdatedType, env.EventType)
	assert.Equal(t, "p-9", env.AggregateID)
	assert.Equal(t, 4, env.Version)
	assert.Equal(t, occurred, env.OccurredAt)

	decoded, err := DecodeEvent(env.EventType, env.Payload)
	require.NoError(t, err)
	assert.Equal(t, evt, decoded)
}

func TestRecord_Envelope(t *testing.T) {
	rec := Record{
		Seq:         7,
		Timestamp:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		AggregateID: "p-1",
		Version:     2,
		EventType:   StockUpdatedType,
		Payload:     []byte(`{"id":"p-1"}`),
	}

	env := rec.Envelope()
	assert.Equal(t, rec.EventType, env.EventType)
	assert.Equal(t, rec.AggregateID, env.AggregateID)
	assert.Equal(t, rec.Version, env.Version)
	assert.Equal(t, rec.Timestamp, env.OccurredAt)
}
