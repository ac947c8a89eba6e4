package application

import (
	"context"
	"fmt"

	"github.com/davicafu/inventorylab/internal/product/domain"
)

// HandlerFunc ejecuta un comando ya ruteado.
type HandlerFunc func(ctx context.Context, cmd domain.Command) error

// CommandDispatcher rutea cada comando a exactamente un handler registrado.
// Es un objeto explícito construido en el arranque y pasado por referencia,
// sin estado global de proceso.
type CommandDispatcher struct {
	routes map[string]HandlerFunc
}

func NewCommandDispatcher() *CommandDispatcher {
	return &CommandDispatcher{routes: make(map[string]HandlerFunc)}
}

// Register asocia un tipo de comando con su handler. Un handler por tipo;
// registrar dos veces el mismo tipo es un error de configuración.
func (d *CommandDispatcher) Register(commandType string, h HandlerFunc) error {
	if _, exists := d.routes[commandType]; exists {
		return fmt.Errorf("handler already registered for %q", commandType)
	}
	d.routes[commandType] = h
	return nil
}

// Send rutea el comando de forma síncrona: retorna cuando el handler
// termina o falla. Un tipo sin handler es fatal, no reintenable.
func (d *CommandDispatcher) Send(ctx context.Context, cmd domain.Command) error {
	h, ok := d.routes[cmd.CommandType()]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnroutableCommand, cmd.CommandType())
	}
	return h(ctx, cmd)
}
