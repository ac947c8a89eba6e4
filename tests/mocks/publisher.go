package mocks

import (
	"context"
	"errors"
	"sync"

	productDomain "github.com/davicafu/inventorylab/internal/product/domain"
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// PublishedMessage captura un envío al broker para poder inspeccionarlo.
type PublishedMessage struct {
	Topic    string
	Envelope sharedEvents.Envelope
}

// CapturePublisher registra todo lo publicado. Se puede configurar para
// fallar un número de veces y simular un broker caído.
type CapturePublisher struct {
	mu       sync.Mutex
	Messages []PublishedMessage

	// FailuresLeft hace fallar las próximas N publicaciones.
	// Con -1 falla siempre.
	FailuresLeft int
}

func NewCapturePublisher() *CapturePublisher {
	return &CapturePublisher{}
}

func (p *CapturePublisher) Publish(ctx context.Context, topic string, env sharedEvents.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.FailuresLeft != 0 {
		if p.FailuresLeft > 0 {
			p.FailuresLeft--
		}
		return errors.New("broker unavailable")
	}

	p.Messages = append(p.Messages, PublishedMessage{Topic: topic, Envelope: env})
	return nil
}

// Published devuelve una copia de lo capturado hasta ahora.
func (p *CapturePublisher) Published() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]PublishedMessage, len(p.Messages))
	copy(out, p.Messages)
	return out
}

// SetFailures configura cuántas publicaciones fallarán a partir de ahora.
func (p *CapturePublisher) SetFailures(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.FailuresLeft = n
}

// Verificación estática
var _ productDomain.EventPublisher = (*CapturePublisher)(nil)
