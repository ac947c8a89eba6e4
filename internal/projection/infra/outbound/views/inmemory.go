package views

import (
	"context"
	"sort"
	"sync"

	"github.com/davicafu/inventorylab/internal/projection/domain"
)

// InMemoryViewRepo implementa ProductViewRepository con un mapa en memoria.
type InMemoryViewRepo struct {
	mu    sync.RWMutex
	views map[string]domain.ProductView
}

// Verificación estática
var _ domain.ProductViewRepository = (*InMemoryViewRepo)(nil)

func NewInMemoryViewRepo() *InMemoryViewRepo {
	return &InMemoryViewRepo{views: make(map[string]domain.ProductView)}
}

func (r *InMemoryViewRepo) Upsert(ctx context.Context, v *domain.ProductView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[v.ID] = *v
	return nil
}

func (r *InMemoryViewRepo) GetByID(ctx context.Context, id string) (*domain.ProductView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[id]
	if !ok {
		return nil, domain.ErrViewNotFound
	}
	out := v
	return &out, nil
}

func (r *InMemoryViewRepo) List(ctx context.Context) ([]*domain.ProductView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.ProductView, 0, len(r.views))
	for _, v := range r.views {
		vCopy := v
		out = append(out, &vCopy)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryViewRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = make(map[string]domain.ProductView)
	return nil
}
