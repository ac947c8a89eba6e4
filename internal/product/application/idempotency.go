package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/inventorylab/internal/product/domain"
)

// IdempotencyService deduplica envíos de comandos por clave del cliente.
// "Comprobar ausente y marcar Processing" es un único paso atómico vía
// PutIfAbsent del store, de modo que dos peticiones concurrentes con la
// misma clave nunca ejecutan las dos.
type IdempotencyService struct {
	store domain.IdempotencyStore
	log   *zap.Logger
}

func NewIdempotencyService(store domain.IdempotencyStore, log *zap.Logger) *IdempotencyService {
	return &IdempotencyService{store: store, log: log}
}

// Begin intenta reclamar la clave. Resultados posibles:
//   - (nil, nil): clave nueva, marcada Processing; el comando debe ejecutarse.
//   - (record, nil): ya hay resultado terminal cacheado; devolverlo tal cual.
//   - (nil, ErrDuplicateSubmission): otra petición con la misma clave sigue en curso.
func (s *IdempotencyService) Begin(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	rec := domain.IdempotencyRecord{
		Key:       key,
		Status:    domain.IdempotencyProcessing,
		CreatedAt: time.Now().UTC(),
	}

	inserted, err := s.store.PutIfAbsent(ctx, key, rec)
	if err != nil {
		return nil, fmt.Errorf("idempotency begin: %w", err)
	}
	if inserted {
		s.log.Debug("Clave de idempotencia reclamada", zap.String("key", key))
		return nil, nil
	}

	existing, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrIdempotencyKeyNotFound) {
			// Carrera con una expiración: tratar como duplicado en curso.
			return nil, domain.ErrDuplicateSubmission
		}
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}

	if existing.Status == domain.IdempotencyProcessing {
		s.log.Warn("⚠️ Petición duplicada en curso", zap.String("key", key))
		return nil, domain.ErrDuplicateSubmission
	}

	s.log.Info("Resultado cacheado devuelto por idempotencia",
		zap.String("key", key),
		zap.String("status", string(existing.Status)),
	)
	return existing, nil
}

// StoreSuccess finaliza la clave con la respuesta exacta enviada al cliente.
func (s *IdempotencyService) StoreSuccess(ctx context.Context, key string, httpStatus int, body []byte) error {
	return s.store.Update(ctx, key, domain.IdempotencyRecord{
		Key:          key,
		Status:       domain.IdempotencySucceeded,
		HTTPStatus:   httpStatus,
		ResponseBody: body,
		CreatedAt:    time.Now().UTC(),
	})
}

// StoreFailure finaliza la clave con el error observado; el body también se
// guarda para poder reproducir la respuesta byte a byte.
func (s *IdempotencyService) StoreFailure(ctx context.Context, key string, httpStatus int, body []byte, errMsg string) error {
	return s.store.Update(ctx, key, domain.IdempotencyRecord{
		Key:          key,
		Status:       domain.IdempotencyFailed,
		HTTPStatus:   httpStatus,
		ResponseBody: body,
		ErrorMessage: errMsg,
		CreatedAt:    time.Now().UTC(),
	})
}

// Result devuelve el registro para inspección administrativa.
func (s *IdempotencyService) Result(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	return s.store.Get(ctx, key)
}
