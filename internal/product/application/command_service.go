package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/davicafu/inventorylab/internal/product/domain"
)

// ProductCommandHandler ejecuta los comandos del agregado Product.
type ProductCommandHandler struct {
	es  *EventSourcingHandler
	log *zap.Logger
}

func NewProductCommandHandler(es *EventSourcingHandler, log *zap.Logger) *ProductCommandHandler {
	return &ProductCommandHandler{es: es, log: log}
}

func (h *ProductCommandHandler) HandleCreateProduct(ctx context.Context, cmd domain.CreateProduct) error {
	p, err := domain.NewProduct(cmd.ID, cmd.Name, cmd.Description, cmd.Category, cmd.Price, cmd.StoreID, cmd.InitialAmount)
	if err != nil {
		return err
	}
	if err := h.es.Save(ctx, p); err != nil {
		return err
	}
	h.log.Info("Producto creado", zap.String("product_id", p.ID()), zap.String("store_id", p.StoreID))
	return nil
}

// HandleUpdateStock rechaza ids sin stream: un comando de mutación nunca
// crea un stream como efecto colateral.
func (h *ProductCommandHandler) HandleUpdateStock(ctx context.Context, cmd domain.UpdateStock) error {
	p, err := h.es.GetByID(ctx, cmd.ID)
	if err != nil {
		return err
	}
	if err := p.UpdateStock(cmd.Operation, cmd.Amount, cmd.Reason); err != nil {
		return err
	}
	return h.es.Save(ctx, p)
}

// RegisterProductHandlers registra las rutas de comando en el dispatcher.
// Se llama una vez durante la inicialización del proceso.
func RegisterProductHandlers(d *CommandDispatcher, h *ProductCommandHandler) error {
	if err := d.Register(domain.CreateProductCommand, func(ctx context.Context, cmd domain.Command) error {
		c, ok := cmd.(domain.CreateProduct)
		if !ok {
			return fmt.Errorf("%w: unexpected payload for %s", domain.ErrUnroutableCommand, domain.CreateProductCommand)
		}
		return h.HandleCreateProduct(ctx, c)
	}); err != nil {
		return err
	}

	return d.Register(domain.UpdateStockCommand, func(ctx context.Context, cmd domain.Command) error {
		c, ok := cmd.(domain.UpdateStock)
		if !ok {
			return fmt.Errorf("%w: unexpected payload for %s", domain.ErrUnroutableCommand, domain.UpdateStockCommand)
		}
		return h.HandleUpdateStock(ctx, c)
	})
}
