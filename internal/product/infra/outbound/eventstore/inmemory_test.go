package eventstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davicafu/inventorylab/internal/product/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

func makeEnvelope(t *testing.T, id string, version int) sharedEvents.Envelope {
	t.Helper()
	evt := sharedEvents.StockUpdated{ID: id, Operation: "set", Amount: version, NewAmount: version, UpdatedAt: time.Now().UTC()}
	env, err := sharedEvents.NewEnvelope(evt, version, time.Now().UTC())
	require.NoError(t, err)
	return env
}

func TestInMemoryEventStore_AppendAndLoad(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "p-1", []sharedEvents.Envelope{makeEnvelope(t, "p-1", 1)}, domain.VersionAny))
	require.NoError(t, store.Append(ctx, "p-1", []sharedEvents.Envelope{makeEnvelope(t, "p-1", 2), makeEnvelope(t, "p-1", 3)}, 1))

	envs, err := store.Load(ctx, "p-1")
	require.NoError(t, err)
	require.Len(t, envs, 3)

	// ✅ El stream conserva el orden de versión
	for i, env := range envs {
		assert.Equal(t, i+1, env.Version)
	}

	version, err := store.CurrentVersion(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

func TestInMemoryEventStore_StreamInexistente(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	envs, err := store.Load(ctx, "no-existe")
	require.NoError(t, err)
	assert.Empty(t, envs)

	version, err := store.CurrentVersion(ctx, "no-existe")
	require.NoError(t, err)
	assert.Equal(t, 0, version)
}

func TestInMemoryEventStore_ConcurrencyConflict(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "p-1", []sharedEvents.Envelope{makeEnvelope(t, "p-1", 1)}, 0))
	require.NoError(t, store.Append(ctx, "p-1", []sharedEvents.Envelope{makeEnvelope(t, "p-1", 2)}, 1))

	// Versión esperada obsoleta → conflicto
	err := store.Append(ctx, "p-1", []sharedEvents.Envelope{makeEnvelope(t, "p-1", 2)}, 1)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	// ✅ El stream queda intacto tras el rechazo
	version, err := store.CurrentVersion(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestInMemoryEventStore_AppendAtomico(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	// Lote con versión esperada incorrecta: no se escribe ningún evento
	batch := []sharedEvents.Envelope{makeEnvelope(t, "p-1", 1), makeEnvelope(t, "p-1", 2)}
	err := store.Append(ctx, "p-1", batch, 5)
	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)

	envs, err := store.Load(ctx, "p-1")
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestInMemoryEventStore_ConcurrentAppends_SoloUnoGana(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "p-1", []sharedEvents.Envelope{makeEnvelope(t, "p-1", 1)}, 0))

	const writers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	conflicts := 0

	// Todos los writers parten de la misma versión esperada
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Append(ctx, "p-1", []sharedEvents.Envelope{makeEnvelope(t, "p-1", 2)}, 1)
			if err != nil {
				mu.Lock()
				conflicts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// ✅ Exactamente un writer gana; el resto observa conflicto
	assert.Equal(t, writers-1, conflicts)
	version, err := store.CurrentVersion(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestInMemoryEventStore_StreamsIndependientes(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "p-1", []sharedEvents.Envelope{makeEnvelope(t, "p-1", 1)}, 0))
	require.NoError(t, store.Append(ctx, "p-2", []sharedEvents.Envelope{makeEnvelope(t, "p-2", 1), makeEnvelope(t, "p-2", 2)}, 0))

	v1, _ := store.CurrentVersion(ctx, "p-1")
	v2, _ := store.CurrentVersion(ctx, "p-2")
	assert.Equal(t, 1, v1)
	assert.Equal(t, 2, v2)

	ids, err := store.AggregateIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2"}, ids)
}

func TestInMemoryEventStore_ScanAll_OrdenGlobal(t *testing.T) {
	store := NewInMemoryEventStore()
	ctx := context.Background()

	// Intercalar appends de varios agregados
	for i := 0; i < 3; i++ {
		id1 := fmt.Sprintf("a-%d", i)
		require.NoError(t, store.Append(ctx, id1, []sharedEvents.Envelope{makeEnvelope(t, id1, 1)}, 0))
	}

	records, err := store.ScanAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// ✅ El orden global respeta el orden de inserción (Seq creciente)
	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i].Seq, records[i-1].Seq)
	}
}
