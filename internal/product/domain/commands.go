package domain

// Tipos de comando, usados como clave de ruteo en el dispatcher.
const (
	CreateProductCommand = "CreateProduct"
	UpdateStockCommand   = "UpdateStock"
)

// Command es la unión cerrada de comandos del contexto.
type Command interface {
	CommandType() string
	CommandAggregateID() string
}

type CreateProduct struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Category      string  `json:"category"`
	Price         float64 `json:"price"`
	StoreID       string  `json:"store_id"`
	InitialAmount int     `json:"initial_amount"`
}

func (c CreateProduct) CommandType() string        { return CreateProductCommand }
func (c CreateProduct) CommandAggregateID() string { return c.ID }

type UpdateStock struct {
	ID        string `json:"id"`
	Operation string `json:"operation"`
	Amount    int    `json:"amount"`
	Reason    string `json:"reason,omitempty"`
}

func (c UpdateStock) CommandType() string        { return UpdateStockCommand }
func (c UpdateStock) CommandAggregateID() string { return c.ID }
