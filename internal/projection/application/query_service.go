package application

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/inventorylab/internal/projection/domain"
)

// ProductQueryService sirve las consultas del read model.
// Sin garantía de consistencia más allá de "eventualmente refleja todos
// los eventos confirmados".
type ProductQueryService struct {
	views domain.ProductViewRepository
	cache domain.ViewCache // opcional
	log   *zap.Logger
}

func NewProductQueryService(views domain.ProductViewRepository, cache domain.ViewCache, log *zap.Logger) *ProductQueryService {
	return &ProductQueryService{views: views, cache: cache, log: log}
}

// GetProduct obtiene una vista (primero intenta desde cache).
func (s *ProductQueryService) GetProduct(ctx context.Context, id string) (*domain.ProductView, error) {
	// 1. Intentar cache
	if s.cache != nil {
		var v domain.ProductView
		if ok, _ := s.cache.Get(ctx, domain.CacheKeyByID(id), &v); ok {
			return &v, nil
		}
	}

	// 2. Ir al repo
	view, err := s.views.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3. Actualizar cache en background sin bloquear la respuesta
	if s.cache != nil {
		go func(v *domain.ProductView) {
			ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			if err := s.cache.Set(ctxCache, domain.CacheKeyByID(v.ID), v, 60); err != nil {
				s.log.Warn("⚠️ Cache update failed for product view", zap.String("id", v.ID), zap.Error(err))
			}
		}(view)
	}

	return view, nil
}

// ListProducts devuelve todas las vistas de la proyección.
func (s *ProductQueryService) ListProducts(ctx context.Context) ([]*domain.ProductView, error) {
	return s.views.List(ctx)
}
