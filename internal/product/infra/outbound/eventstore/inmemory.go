package eventstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/davicafu/inventorylab/internal/product/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// stream serializa el check-and-append de un único agregado.
type stream struct {
	mu      sync.Mutex
	records []sharedEvents.Record
}

// InMemoryEventStore implementa el port EventStore sobre mapas en memoria.
// El lock es por stream, nunca global: appends sobre agregados distintos
// proceden en paralelo.
type InMemoryEventStore struct {
	mu      sync.RWMutex
	streams map[string]*stream
	seq     int64
	seqMu   sync.Mutex
}

// Verificación estática
var _ domain.EventStore = (*InMemoryEventStore)(nil)

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{streams: make(map[string]*stream)}
}

func (s *InMemoryEventStore) getOrCreate(aggregateID string) *stream {
	s.mu.RLock()
	st, ok := s.streams[aggregateID]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.streams[aggregateID]; ok {
		return st
	}
	st = &stream{}
	s.streams[aggregateID] = st
	return st
}

func (s *InMemoryEventStore) nextSeq() int64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	s.seq++
	return s.seq
}

func (s *InMemoryEventStore) Append(ctx context.Context, aggregateID string, envs []sharedEvents.Envelope, expectedVersion int) error {
	if len(envs) == 0 {
		return nil
	}

	st := s.getOrCreate(aggregateID)
	st.mu.Lock()
	defer st.mu.Unlock()

	current := len(st.records)
	if expectedVersion != domain.VersionAny && expectedVersion != current {
		return fmt.Errorf("%w: aggregate %s expected %d, current %d",
			domain.ErrConcurrencyConflict, aggregateID, expectedVersion, current)
	}

	// El lote se materializa completo antes de tocar el stream: todo o nada.
	batch := make([]sharedEvents.Record, 0, len(envs))
	for i, env := range envs {
		if len(env.Payload) == 0 {
			return fmt.Errorf("%w: empty payload for %s", domain.ErrSerialization, env.EventType)
		}
		batch = append(batch, sharedEvents.Record{
			Seq:           s.nextSeq(),
			Timestamp:     env.OccurredAt,
			AggregateID:   aggregateID,
			AggregateType: domain.AggregateType,
			Version:       current + 1 + i,
			EventType:     env.EventType,
			Payload:       env.Payload,
		})
	}
	st.records = append(st.records, batch...)
	return nil
}

func (s *InMemoryEventStore) Load(ctx context.Context, aggregateID string) ([]sharedEvents.Envelope, error) {
	records, err := s.ScanByAggregate(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	envs := make([]sharedEvents.Envelope, 0, len(records))
	for _, r := range records {
		envs = append(envs, r.Envelope())
	}
	return envs, nil
}

func (s *InMemoryEventStore) CurrentVersion(ctx context.Context, aggregateID string) (int, error) {
	s.mu.RLock()
	st, ok := s.streams[aggregateID]
	s.mu.RUnlock()
	if !ok {
		return 0, nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.records), nil
}

func (s *InMemoryEventStore) AggregateIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *InMemoryEventStore) ScanAll(ctx context.Context) ([]sharedEvents.Record, error) {
	s.mu.RLock()
	streams := make([]*stream, 0, len(s.streams))
	for _, st := range s.streams {
		streams = append(streams, st)
	}
	s.mu.RUnlock()

	var all []sharedEvents.Record
	for _, st := range streams {
		st.mu.Lock()
		all = append(all, st.records...)
		st.mu.Unlock()
	}
	// Orden global = orden de inserción.
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })
	return all, nil
}

func (s *InMemoryEventStore) ScanByAggregate(ctx context.Context, aggregateID string) ([]sharedEvents.Record, error) {
	s.mu.RLock()
	st, ok := s.streams[aggregateID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]sharedEvents.Record, len(st.records))
	copy(out, st.records)
	return out, nil
}
