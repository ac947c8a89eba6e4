package events

import (
	"context"
	"encoding/json"
	"sync"

	productDomain "github.com/davicafu/inventorylab/internal/product/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// InMemoryEventBus implementa un bus de eventos multi-topic sobre canales,
// para despliegue local sin Kafka. Entrega best-effort a cada suscriptor.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte
}

// Verifica en tiempo de compilación que cumple la interfaz
var _ productDomain.EventPublisher = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string][]chan []byte),
	}
}

// Publish envía el sobre serializado a todos los suscriptores del topic.
func (b *InMemoryEventBus) Publish(ctx context.Context, topic string, env sharedEvents.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}

	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()

	for _, subChan := range subs {
		select {
		case subChan <- payload:
		default:
			// Suscriptor saturado: se descarta esta entrega (el replay
			// administrativo permite reconstruir la proyección).
		}
	}
	return nil
}

// Subscribe registra un nuevo oyente para un topic.
func (b *InMemoryEventBus) Subscribe(topic string, bufferSize int) <-chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	subChan := make(chan []byte, bufferSize)
	b.subscribers[topic] = append(b.subscribers[topic], subChan)
	return subChan
}

// BackgroundConsumerChan conecta un canal de suscripción con un MessageHandler.
func BackgroundConsumerChan(ctx context.Context, ch <-chan []byte, handler MessageHandler) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case payload := <-ch:
				handler.HandleMessage(ctx, "", payload)
			}
		}
	}()
}
