package domain

import (
	"fmt"
	"strings"
	"time"

	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// Operaciones de stock soportadas.
const (
	OpPurchase = "purchase" // resta del stock actual
	OpRestock  = "restock"  // suma al stock actual
	OpSet      = "set"      // fija el stock a un valor absoluto
)

// Product es la proyección en memoria de su propio stream de eventos.
type Product struct {
	AggregateRoot

	Name        string
	Description string
	Category    string
	Price       float64
	StoreID     string
	Amount      int
	CreatedAt   time.Time
}

// NewProduct construye un agregado nuevo con identidad dada y levanta
// el evento de creación.
func NewProduct(id, name, description, category string, price float64, storeID string, initialAmount int) (*Product, error) {
	if id == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: id and name are required", ErrInvalidProduct)
	}
	if price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if initialAmount < 0 {
		return nil, fmt.Errorf("%w: initial amount must not be negative", ErrInvalidProduct)
	}

	p := &Product{}
	p.raise(sharedEvents.ProductCreated{
		ID:            id,
		Name:          name,
		Description:   description,
		Category:      category,
		Price:         price,
		StoreID:       storeID,
		InitialAmount: initialAmount,
		CreatedAt:     time.Now().UTC(),
	})
	return p, nil
}

// UpdateStock ejecuta la regla de negocio y levanta StockUpdated.
// Si el resultado sería negativo no se levanta nada.
func (p *Product) UpdateStock(operation string, amount int, reason string) error {
	if amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrUnknownOperation)
	}

	var newAmount int
	switch strings.ToLower(operation) {
	case OpPurchase:
		newAmount = p.Amount - amount
	case OpRestock:
		newAmount = p.Amount + amount
	case OpSet:
		newAmount = amount
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, operation)
	}

	if newAmount < 0 {
		return fmt.Errorf("%w: current %d, requested %d", ErrInsufficientStock, p.Amount, amount)
	}

	p.raise(sharedEvents.StockUpdated{
		ID:        p.ID(),
		Operation: strings.ToLower(operation),
		Amount:    amount,
		NewAmount: newAmount,
		Reason:    reason,
		UpdatedAt: time.Now().UTC(),
	})
	return nil
}

// raise aplica el evento al estado y lo registra como pendiente.
func (p *Product) raise(e sharedEvents.Event) {
	p.applyEvent(e)
	p.record(e)
}

// applyEvent es el fold: función pura de (estado previo, evento) → estado.
// Replays repetidos desde un agregado fresco producen siempre el mismo estado.
func (p *Product) applyEvent(e sharedEvents.Event) {
	switch evt := e.(type) {
	case sharedEvents.ProductCreated:
		p.setID(evt.ID)
		p.Name = evt.Name
		p.Description = evt.Description
		p.Category = evt.Category
		p.Price = evt.Price
		p.StoreID = evt.StoreID
		p.Amount = evt.InitialAmount
		p.CreatedAt = evt.CreatedAt
	case sharedEvents.StockUpdated:
		p.Amount = evt.NewAmount
	}
}

// ReplayProduct rehidrata un agregado plegando su stream en orden de versión.
func ReplayProduct(events []sharedEvents.Event) *Product {
	p := &Product{}
	for _, e := range events {
		p.applyEvent(e)
		p.replayed()
	}
	return p
}
