package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// ---------- Errores del read model ----------
var (
	ErrViewNotFound = errors.New("product view not found")
)

// ProductView es la representación desnormalizada y optimizada para consulta
// de un producto. Se sobreescribe al aplicar cada evento, nunca se versiona;
// puede ir por detrás del lado de escritura (consistencia eventual).
type ProductView struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description" bson:"description"`
	Category    string    `json:"category" bson:"category"`
	Price       float64   `json:"price" bson:"price"`
	StoreID     string    `json:"store_id" bson:"store_id"`
	Amount      int       `json:"amount" bson:"amount"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// ---------- Interfaces (Ports) ----------

// ProductViewRepository define las operaciones persistentes del read model.
type ProductViewRepository interface {
	// Upsert inserta o sobreescribe la vista completa.
	Upsert(ctx context.Context, v *ProductView) error

	// Debe devolver ErrViewNotFound si no existe.
	GetByID(ctx context.Context, id string) (*ProductView, error)

	List(ctx context.Context) ([]*ProductView, error)

	// DeleteAll vacía la proyección antes de un rebuild administrativo.
	DeleteAll(ctx context.Context) error
}

// ViewCache es una caché clave-valor delante del repositorio de vistas.
type ViewCache interface {
	// Get intenta poblar dest (puntero) con el valor asociado a la key.
	// Devuelve (true, nil) si hay hit y dest fue rellenado.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set serializa y guarda el valor con TTL en segundos.
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error

	Delete(ctx context.Context, key string) error
}

// EventAnalytics registra los eventos consumidos para analítica.
type EventAnalytics interface {
	LogBatch(ctx context.Context, envs []sharedEvents.Envelope) error
}

// CacheKeyByID forma una key consistente para cache usando el id del producto.
func CacheKeyByID(id string) string {
	return fmt.Sprintf("product_view:id:%s", id)
}
