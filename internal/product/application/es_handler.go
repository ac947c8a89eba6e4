package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/inventorylab/internal/product/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
	sharedUtils "github.com/davicafu/inventorylab/internal/shared/infra/utils"
)

// EventSourcingHandler gestiona el ciclo de vida del agregado Product:
// persistir sus eventos pendientes, rehidratarlo por replay y republicar
// el log completo para reconstruir proyecciones.
type EventSourcingHandler struct {
	store          domain.EventStore
	publisher      domain.EventPublisher
	deadLetters    domain.DeadLetterStore // opcional
	publishRetries int
	publishBackoff time.Duration
	log            *zap.Logger
}

func NewEventSourcingHandler(store domain.EventStore, publisher domain.EventPublisher, retries int, backoff time.Duration, log *zap.Logger) *EventSourcingHandler {
	if retries <= 0 {
		retries = 1
	}
	return &EventSourcingHandler{
		store:          store,
		publisher:      publisher,
		publishRetries: retries,
		publishBackoff: backoff,
		log:            log,
	}
}

// WithDeadLetters aparca los eventos que agoten los reintentos de publicación
// en lugar de solo loguearlos.
func (h *EventSourcingHandler) WithDeadLetters(dlt domain.DeadLetterStore) *EventSourcingHandler {
	h.deadLetters = dlt
	return h
}

// Save persiste los eventos pendientes del agregado con guard optimista y
// después los publica al broker. Si el append falla por conflicto, los
// pendientes NO se limpian y nada se publica. Un fallo de publicación tras
// el append nunca revierte lo persistido: crea lag de lectura, no pérdida.
func (h *EventSourcingHandler) Save(ctx context.Context, p *domain.Product) error {
	uncommitted := p.UncommittedEvents()
	if len(uncommitted) == 0 {
		return nil
	}

	// Versión del stream antes de que este comando levantara eventos.
	expected := p.Version() - len(uncommitted)

	envs := make([]sharedEvents.Envelope, 0, len(uncommitted))
	now := time.Now().UTC()
	for i, e := range uncommitted {
		env, err := sharedEvents.NewEnvelope(e, expected+1+i, now)
		if err != nil {
			// El append ni se intenta: el stream queda intacto.
			return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
		}
		envs = append(envs, env)
	}

	if err := h.store.Append(ctx, p.ID(), envs, expected); err != nil {
		return err
	}

	for _, env := range envs {
		h.publishWithRetry(ctx, env)
	}

	p.MarkEventsCommitted()

	h.log.Info("✅ Eventos persistidos y publicados",
		zap.String("aggregate_id", p.ID()),
		zap.Int("events", len(envs)),
		zap.Int("version", p.Version()),
	)
	return nil
}

// GetByID rehidrata el agregado plegando su stream en orden de versión.
// Un stream vacío significa "el agregado no existe".
func (h *EventSourcingHandler) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	envs, err := h.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(envs) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}

	events := make([]sharedEvents.Event, 0, len(envs))
	for _, env := range envs {
		e, err := sharedEvents.DecodeEvent(env.EventType, env.Payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
		}
		events = append(events, e)
	}

	return domain.ReplayProduct(events), nil
}

// RepublishEvents re-emite todo el log al broker para reconstruir las
// proyecciones desde cero. El fallo de un evento individual se loguea y el
// replay continúa: un registro malo no aborta el proceso completo.
func (h *EventSourcingHandler) RepublishEvents(ctx context.Context) (int, error) {
	records, err := h.store.ScanAll(ctx)
	if err != nil {
		return 0, err
	}

	h.log.Info("🔄 Republicando eventos", zap.Int("total", len(records)))

	republished := 0
	for _, rec := range records {
		env := rec.Envelope()
		topic := sharedEvents.TopicFor(env.EventType)
		if err := h.publisher.Publish(ctx, topic, env); err != nil {
			h.log.Error("Fallo al republicar evento",
				zap.Int64("seq", rec.Seq),
				zap.String("aggregate_id", rec.AggregateID),
				zap.String("event_type", rec.EventType),
				zap.Error(err),
			)
			continue
		}
		republished++
	}

	h.log.Info("✅ Replay completado", zap.Int("republished", republished), zap.Int("total", len(records)))
	return republished, nil
}

// CurrentVersion expone la versión actual del stream para los ETag de respuesta.
func (h *EventSourcingHandler) CurrentVersion(ctx context.Context, id string) (int, error) {
	return h.store.CurrentVersion(ctx, id)
}

func (h *EventSourcingHandler) publishWithRetry(ctx context.Context, env sharedEvents.Envelope) {
	topic := sharedEvents.TopicFor(env.EventType)
	err := sharedUtils.Retry(ctx, h.publishRetries, h.publishBackoff, func() error {
		return h.publisher.Publish(ctx, topic, env)
	})
	if err != nil {
		// El evento ya está confirmado en el store: solo lag temporal de lectura.
		h.log.Warn("⚠️ No se pudo publicar evento confirmado",
			zap.String("topic", topic),
			zap.String("aggregate_id", env.AggregateID),
			zap.Int("version", env.Version),
			zap.Error(err),
		)
		if h.deadLetters != nil {
			dl := domain.DeadLetter{Envelope: env, Topic: topic, Reason: err.Error(), FailedAt: time.Now().UTC()}
			if dlErr := h.deadLetters.Add(ctx, dl); dlErr != nil {
				h.log.Error("Fallo al aparcar dead letter", zap.Error(dlErr))
			}
		}
	}
}

// ListDeadLetters expone los eventos aparcados sin consumirlos.
func (h *EventSourcingHandler) ListDeadLetters(ctx context.Context) ([]domain.DeadLetter, error) {
	if h.deadLetters == nil {
		return nil, nil
	}
	return h.deadLetters.List(ctx)
}

// ReplayDeadLetters drena los eventos aparcados y los reintenta. Los que
// vuelven a fallar se re-aparcan para el siguiente replay.
func (h *EventSourcingHandler) ReplayDeadLetters(ctx context.Context) (int, error) {
	if h.deadLetters == nil {
		return 0, nil
	}
	pending, err := h.deadLetters.Drain(ctx)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, dl := range pending {
		if err := h.publisher.Publish(ctx, dl.Topic, dl.Envelope); err != nil {
			h.log.Warn("⚠️ Dead letter sigue sin publicarse",
				zap.String("aggregate_id", dl.Envelope.AggregateID),
				zap.Int("version", dl.Envelope.Version),
				zap.Error(err),
			)
			dl.Reason = err.Error()
			dl.FailedAt = time.Now().UTC()
			if dlErr := h.deadLetters.Add(ctx, dl); dlErr != nil {
				h.log.Error("Fallo al re-aparcar dead letter", zap.Error(dlErr))
			}
			continue
		}
		replayed++
	}

	h.log.Info("🔄 Replay de dead letters completado", zap.Int("replayed", replayed), zap.Int("total", len(pending)))
	return replayed, nil
}
