package deadletter

import (
	"context"
	"sync"

	"github.com/davicafu/inventorylab/internal/product/domain"
)

// InMemoryStore aparca dead letters en memoria. Suficiente para despliegues
// de un solo proceso; en producción el broker gestiona su propio DLT.
type InMemoryStore struct {
	mu      sync.Mutex
	pending []domain.DeadLetter
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Add(_ context.Context, dl domain.DeadLetter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, dl)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]domain.DeadLetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.DeadLetter, len(s.pending))
	copy(out, s.pending)
	return out, nil
}

func (s *InMemoryStore) Drain(_ context.Context) ([]domain.DeadLetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out, nil
}

// Verificación estática
var _ domain.DeadLetterStore = (*InMemoryStore)(nil)
