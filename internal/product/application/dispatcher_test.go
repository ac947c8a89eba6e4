package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/inventorylab/internal/product/domain"
)

func TestDispatcher_RuteaAlHandlerCorrecto(t *testing.T) {
	d := NewCommandDispatcher()

	var received domain.Command
	require.NoError(t, d.Register(domain.CreateProductCommand, func(ctx context.Context, cmd domain.Command) error {
		received = cmd
		return nil
	}))
	require.NoError(t, d.Register(domain.UpdateStockCommand, func(ctx context.Context, cmd domain.Command) error {
		t.Fatal("handler equivocado")
		return nil
	}))

	cmd := domain.CreateProduct{ID: "p-1", Name: "Teclado", StoreID: "store-001"}
	require.NoError(t, d.Send(context.Background(), cmd))
	assert.Equal(t, cmd, received)
}

func TestDispatcher_ComandoSinHandler(t *testing.T) {
	d := NewCommandDispatcher()

	err := d.Send(context.Background(), domain.UpdateStock{ID: "p-1", Operation: "purchase", Amount: 1})
	assert.ErrorIs(t, err, domain.ErrUnroutableCommand)
}

func TestDispatcher_RegistroDuplicado(t *testing.T) {
	d := NewCommandDispatcher()
	noop := func(ctx context.Context, cmd domain.Command) error { return nil }

	require.NoError(t, d.Register(domain.CreateProductCommand, noop))
	assert.Error(t, d.Register(domain.CreateProductCommand, noop))
}

func TestDispatcher_PropagaErrorDelHandler(t *testing.T) {
	d := NewCommandDispatcher()
	require.NoError(t, d.Register(domain.UpdateStockCommand, func(ctx context.Context, cmd domain.Command) error {
		return domain.ErrInsufficientStock
	}))

	err := d.Send(context.Background(), domain.UpdateStock{ID: "p-1", Operation: "purchase", Amount: 99})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}
