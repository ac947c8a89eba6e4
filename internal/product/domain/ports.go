package domain

import (
	"context"
	"errors"
	"time"

	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// ---------- Errores de dominio ----------
var (
	// ErrConcurrencyConflict: la versión esperada no coincide con la actual del stream.
	// El llamante puede reintentar releyendo la versión actual; el store nunca reintenta solo.
	ErrConcurrencyConflict = errors.New("concurrency conflict: expected version mismatch")

	// ErrUnroutableCommand: ningún handler registrado para el tipo de comando.
	// Error de configuración, no de ejecución.
	ErrUnroutableCommand = errors.New("no command handler registered")

	// ErrProductNotFound: el agregado no tiene stream de eventos.
	ErrProductNotFound = errors.New("product not found")

	// ErrSerialization: el payload del evento no se pudo codificar/decodificar.
	ErrSerialization = errors.New("event serialization failure")

	// ErrDuplicateSubmission: la clave de idempotencia ya está en Processing.
	ErrDuplicateSubmission = errors.New("duplicate submission in progress")

	// ErrIdempotencyKeyNotFound: no existe registro para la clave.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")

	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUnknownOperation  = errors.New("unknown stock operation")
	ErrInvalidProduct    = errors.New("invalid product")
)

// VersionAny omite la comprobación de versión en el append.
// Solo es aceptable en la creación del stream.
const VersionAny = -1

// AggregateType del único agregado de este contexto.
const AggregateType = "Product"

// ---------- Interfaces (Ports) ----------

// EventStore es el log append-only de streams de eventos por agregado.
type EventStore interface {
	// Append añade el lote completo o nada. La versión actual del stream se
	// define como el número de eventos ya almacenados (0 si no existe).
	// Devuelve ErrConcurrencyConflict si expectedVersion != versión actual,
	// salvo expectedVersion == VersionAny. La comprobación y el append son
	// una única operación atómica por aggregateID.
	Append(ctx context.Context, aggregateID string, envs []sharedEvents.Envelope, expectedVersion int) error

	// Load devuelve el stream completo ordenado por versión (vacío si no existe).
	Load(ctx context.Context, aggregateID string) ([]sharedEvents.Envelope, error)

	// CurrentVersion devuelve el número de eventos almacenados para el id.
	CurrentVersion(ctx context.Context, aggregateID string) (int, error)

	// AggregateIDs lista los ids con stream.
	AggregateIDs(ctx context.Context) ([]string, error)

	// ScanAll devuelve todos los registros en orden de inserción, para
	// replay administrativo.
	ScanAll(ctx context.Context) ([]sharedEvents.Record, error)

	// ScanByAggregate devuelve los registros de un stream en orden de versión.
	ScanByAggregate(ctx context.Context, aggregateID string) ([]sharedEvents.Record, error)
}

// EventPublisher publica eventos confirmados en un topic con entrega at-least-once.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, env sharedEvents.Envelope) error
}

// ---------- Dead letters ----------

// DeadLetter es un evento confirmado en el store que agotó los reintentos
// de publicación. El evento no se pierde: queda aparcado para replay manual.
type DeadLetter struct {
	Envelope sharedEvents.Envelope `json:"envelope"`
	Topic    string                `json:"topic"`
	Reason   string                `json:"reason"`
	FailedAt time.Time             `json:"failed_at"`
}

// DeadLetterStore aparca eventos no publicados para inspección y replay.
type DeadLetterStore interface {
	Add(ctx context.Context, dl DeadLetter) error

	// List devuelve los dead letters pendientes sin consumirlos.
	List(ctx context.Context) ([]DeadLetter, error)

	// Drain devuelve y elimina todos los pendientes en una sola operación.
	Drain(ctx context.Context) ([]DeadLetter, error)
}

// ---------- Idempotencia ----------

type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "processing"
	IdempotencySucceeded  IdempotencyStatus = "succeeded"
	IdempotencyFailed     IdempotencyStatus = "failed"
)

// IdempotencyRecord guarda el resultado de un comando por clave de cliente.
// ResponseBody son los bytes exactos de la respuesta original, para que los
// reintentos observen una respuesta byte-idéntica.
type IdempotencyRecord struct {
	Key          string            `json:"key"`
	Status       IdempotencyStatus `json:"status"`
	HTTPStatus   int               `json:"http_status"`
	ResponseBody []byte            `json:"response_body,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// IdempotencyStore es un key-value con inserción atómica por clave.
type IdempotencyStore interface {
	// Get devuelve ErrIdempotencyKeyNotFound si la clave no existe.
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)

	// PutIfAbsent inserta solo si la clave no existe. Devuelve true si insertó.
	// "comprobar ausente y marcar Processing" debe ser un único paso atómico.
	PutIfAbsent(ctx context.Context, key string, rec IdempotencyRecord) (bool, error)

	// Update transiciona el registro a un estado terminal.
	Update(ctx context.Context, key string, rec IdempotencyRecord) error
}
