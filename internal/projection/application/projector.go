package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/inventorylab/internal/projection/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// Projector pliega los eventos consumidos del broker en el read model.
// Aplicar un evento es una función determinista de (tipo, payload, vista
// actual), así que los redeliveries at-least-once y el replay completo del
// log producen la misma vista final que el consumo incremental original.
type Projector struct {
	views     domain.ProductViewRepository
	cache     domain.ViewCache      // opcional
	analytics domain.EventAnalytics // opcional
	log       *zap.Logger

	mu          sync.Mutex
	applied     int64
	lastEventAt time.Time
	lastApplied time.Time
}

// Status es el indicador de frescura que se expone a los clientes.
type Status struct {
	Applied     int64     `json:"applied_events"`
	LastEventAt time.Time `json:"last_event_at"`
	LastApplied time.Time `json:"last_applied_at"`
}

func NewProjector(views domain.ProductViewRepository, cache domain.ViewCache, analytics domain.EventAnalytics, log *zap.Logger) *Projector {
	return &Projector{
		views:     views,
		cache:     cache,
		analytics: analytics,
		log:       log,
	}
}

// Apply incorpora un sobre a la proyección.
func (p *Projector) Apply(ctx context.Context, env sharedEvents.Envelope) error {
	switch env.EventType {
	case sharedEvents.ProductCreatedType:
		evt, err := decodeAs[sharedEvents.ProductCreated](env)
		if err != nil {
			return err
		}
		if err := p.applyProductCreated(ctx, evt); err != nil {
			return err
		}

	case sharedEvents.StockUpdatedType:
		evt, err := decodeAs[sharedEvents.StockUpdated](env)
		if err != nil {
			return err
		}
		if err := p.applyStockUpdated(ctx, env, evt); err != nil {
			return err
		}

	default:
		// Nunca se descarta en silencio.
		p.log.Warn("Tipo de evento desconocido en proyección",
			zap.String("event_type", env.EventType),
			zap.String("aggregate_id", env.AggregateID),
		)
		return nil
	}

	p.logAnalytics(ctx, env)
	p.track(env)
	return nil
}

func (p *Projector) applyProductCreated(ctx context.Context, evt sharedEvents.ProductCreated) error {
	// Upsert completo: un redelivery sobreescribe con los mismos valores.
	view := &domain.ProductView{
		ID:          evt.ID,
		Name:        evt.Name,
		Description: evt.Description,
		Category:    evt.Category,
		Price:       evt.Price,
		StoreID:     evt.StoreID,
		Amount:      evt.InitialAmount,
		CreatedAt:   evt.CreatedAt,
		UpdatedAt:   evt.CreatedAt,
	}
	if err := p.views.Upsert(ctx, view); err != nil {
		return err
	}
	p.refreshCache(view)
	return nil
}

func (p *Projector) applyStockUpdated(ctx context.Context, env sharedEvents.Envelope, evt sharedEvents.StockUpdated) error {
	view, err := p.views.GetByID(ctx, evt.ID)
	if err != nil {
		if errors.Is(err, domain.ErrViewNotFound) {
			// El evento de creación aún no llegó (o la vista fue vaciada para
			// un rebuild): se loguea y el replay lo resolverá.
			p.log.Warn("StockUpdated para vista inexistente",
				zap.String("product_id", evt.ID),
				zap.Int("version", env.Version),
			)
			return nil
		}
		return err
	}

	// NewAmount es absoluto: reaplicar el mismo evento deja la vista igual.
	view.Amount = evt.NewAmount
	view.UpdatedAt = evt.UpdatedAt
	if err := p.views.Upsert(ctx, view); err != nil {
		return err
	}
	p.refreshCache(view)
	return nil
}

// Status devuelve el estado de frescura de la proyección.
func (p *Projector) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		Applied:     p.applied,
		LastEventAt: p.lastEventAt,
		LastApplied: p.lastApplied,
	}
}

func (p *Projector) track(env sharedEvents.Envelope) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied++
	p.lastEventAt = env.OccurredAt
	p.lastApplied = time.Now().UTC()
}

func (p *Projector) refreshCache(view *domain.ProductView) {
	if p.cache == nil {
		return
	}
	go func(v *domain.ProductView) {
		ctxCache, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_ = p.cache.Set(ctxCache, domain.CacheKeyByID(v.ID), v, 60)
	}(view)
}

func (p *Projector) logAnalytics(ctx context.Context, env sharedEvents.Envelope) {
	if p.analytics == nil {
		return
	}
	if err := p.analytics.LogBatch(ctx, []sharedEvents.Envelope{env}); err != nil {
		p.log.Warn("⚠️ No se pudo registrar evento en analítica", zap.Error(err))
	}
}

func decodeAs[T sharedEvents.Event](env sharedEvents.Envelope) (T, error) {
	var zero T
	e, err := sharedEvents.DecodeEvent(env.EventType, env.Payload)
	if err != nil {
		return zero, err
	}
	evt, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected payload type for %s", env.EventType)
	}
	return evt, nil
}
