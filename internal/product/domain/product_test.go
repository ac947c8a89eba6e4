package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

func TestNewProduct_Success(t *testing.T) {
	p, err := NewProduct("p-1", "Teclado", "mecánico", "peripherals", 79.99, "store-001", 10)
	require.NoError(t, err)

	assert.Equal(t, "p-1", p.ID())
	assert.Equal(t, 1, p.Version())
	assert.Equal(t, 10, p.Amount)

	// ✅ El evento de creación queda pendiente de persistir
	events := p.UncommittedEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(sharedEvents.ProductCreated)
	require.True(t, ok)
	assert.Equal(t, "p-1", created.ID)
	assert.Equal(t, 10, created.InitialAmount)
}

func TestNewProduct_Validation(t *testing.T) {
	tests := []struct {
		name          string
		id            string
		productName   string
		price         float64
		initialAmount int
	}{
		{name: "id vacío", id: "", productName: "Teclado", price: 10, initialAmount: 1},
		{name: "nombre vacío", id: "p-1", productName: "   ", price: 10, initialAmount: 1},
		{name: "precio negativo", id: "p-1", productName: "Teclado", price: -1, initialAmount: 1},
		{name: "stock inicial negativo", id: "p-1", productName: "Teclado", price: 10, initialAmount: -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProduct(tt.id, tt.productName, "", "", tt.price, "store-001", tt.initialAmount)
			assert.ErrorIs(t, err, ErrInvalidProduct)
		})
	}
}

func TestUpdateStock_Operations(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		amount    int
		expected  int
	}{
		{name: "purchase resta", operation: OpPurchase, amount: 3, expected: 7},
		{name: "restock suma", operation: OpRestock, amount: 5, expected: 15},
		{name: "set fija el valor absoluto", operation: OpSet, amount: 50, expected: 50},
		{name: "purchase de todo el stock deja cero", operation: OpPurchase, amount: 10, expected: 0},
		{name: "operación en mayúsculas se normaliza", operation: "PURCHASE", amount: 1, expected: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProduct("p-1", "Teclado", "", "", 10, "store-001", 10)
			require.NoError(t, err)

			err = p.UpdateStock(tt.operation, tt.amount, "test")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.Amount)
			assert.Equal(t, 2, p.Version())

			events := p.UncommittedEvents()
			require.Len(t, events, 2)
			updated, ok := events[1].(sharedEvents.StockUpdated)
			require.True(t, ok)
			// NewAmount siempre es el valor absoluto resultante
			assert.Equal(t, tt.expected, updated.NewAmount)
		})
	}
}

func TestUpdateStock_InsufficientStock(t *testing.T) {
	p, err := NewProduct("p-1", "Teclado", "", "", 10, "store-001", 10)
	require.NoError(t, err)

	err = p.UpdateStock(OpPurchase, 100, "pedido grande")
	assert.ErrorIs(t, err, ErrInsufficientStock)

	// ✅ El comando rechazado no levanta evento ni avanza la versión
	assert.Equal(t, 10, p.Amount)
	assert.Equal(t, 1, p.Version())
	assert.Len(t, p.UncommittedEvents(), 1)
}

func TestUpdateStock_InvalidOperation(t *testing.T) {
	p, err := NewProduct("p-1", "Teclado", "", "", 10, "store-001", 10)
	require.NoError(t, err)

	assert.ErrorIs(t, p.UpdateStock("destroy", 1, ""), ErrUnknownOperation)
	assert.ErrorIs(t, p.UpdateStock(OpPurchase, -1, ""), ErrUnknownOperation)
	assert.Equal(t, 1, p.Version())
}

func TestReplayProduct_Determinism(t *testing.T) {
	p, err := NewProduct("p-1", "Teclado", "mecánico", "peripherals", 79.99, "store-001", 10)
	require.NoError(t, err)
	require.NoError(t, p.UpdateStock(OpPurchase, 3, ""))
	require.NoError(t, p.UpdateStock(OpRestock, 5, ""))
	require.NoError(t, p.UpdateStock(OpSet, 50, "inventario físico"))

	history := p.UncommittedEvents()

	// El mismo stream plegado desde cero produce exactamente el mismo estado
	replayed := ReplayProduct(history)
	assert.Equal(t, p.ID(), replayed.ID())
	assert.Equal(t, p.Version(), replayed.Version())
	assert.Equal(t, p.Amount, replayed.Amount)
	assert.Equal(t, p.Name, replayed.Name)
	assert.Equal(t, p.Price, replayed.Price)

	// Replay de nuevo: mismo resultado
	again := ReplayProduct(history)
	assert.Equal(t, replayed.Amount, again.Amount)
	assert.Equal(t, replayed.Version(), again.Version())

	// Los eventos rehidratados no quedan como pendientes
	assert.Empty(t, replayed.UncommittedEvents())
}

func TestMarkEventsCommitted(t *testing.T) {
	p, err := NewProduct("p-1", "Teclado", "", "", 10, "store-001", 10)
	require.NoError(t, err)

	p.MarkEventsCommitted()
	assert.Empty(t, p.UncommittedEvents())
	assert.Equal(t, 1, p.Version())
}
