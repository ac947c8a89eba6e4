package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/davicafu/inventorylab/internal/product/domain"
)

// InMemoryStore implementa IdempotencyStore con un mapa protegido por mutex.
// Todas las mutaciones son atómicas por clave; los registros expiran por TTL
// mediante una goroutine de limpieza en segundo plano.
type InMemoryStore struct {
	mu       sync.Mutex
	records  map[string]storedRecord
	ttl      time.Duration
	stopChan chan struct{}
}

type storedRecord struct {
	rec       domain.IdempotencyRecord
	expiresAt time.Time
}

// Verificación estática
var _ domain.IdempotencyStore = (*InMemoryStore)(nil)

// NewInMemoryStore crea el store. Con ttl <= 0 los registros viven lo que
// viva el proceso.
func NewInMemoryStore(ttl, cleanupInterval time.Duration) *InMemoryStore {
	s := &InMemoryStore{
		records:  make(map[string]storedRecord),
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}
	if ttl > 0 && cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.records[key]
	if !ok || s.expired(sr) {
		return nil, domain.ErrIdempotencyKeyNotFound
	}
	rec := sr.rec
	return &rec, nil
}

func (s *InMemoryStore) PutIfAbsent(ctx context.Context, key string, rec domain.IdempotencyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sr, ok := s.records[key]; ok && !s.expired(sr) {
		return false, nil
	}
	s.records[key] = storedRecord{rec: rec, expiresAt: s.expiry()}
	return true, nil
}

func (s *InMemoryStore) Update(ctx context.Context, key string, rec domain.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = storedRecord{rec: rec, expiresAt: s.expiry()}
	return nil
}

func (s *InMemoryStore) Stop() {
	close(s.stopChan)
}

func (s *InMemoryStore) expiry() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().UTC().Add(s.ttl)
}

func (s *InMemoryStore) expired(sr storedRecord) bool {
	return !sr.expiresAt.IsZero() && time.Now().UTC().After(sr.expiresAt)
}

func (s *InMemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			for key, sr := range s.records {
				if s.expired(sr) {
					delete(s.records, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopChan:
			return
		}
	}
}
