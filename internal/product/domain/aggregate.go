package domain

import (
	sharedEvents "github.com/davicafu/inventorylab/internal/shared/events"
)

// AggregateRoot es la base de los agregados event-sourced.
// Invariante: version == número de eventos aplicados para llegar al estado
// actual, tanto replayed desde el store como recién levantados en este comando.
type AggregateRoot struct {
	id          string
	version     int
	uncommitted []sharedEvents.Event
}

func (a *AggregateRoot) ID() string {
	return a.id
}

func (a *AggregateRoot) Version() int {
	return a.version
}

// UncommittedEvents devuelve los eventos levantados durante la ejecución
// del comando actual, en orden.
func (a *AggregateRoot) UncommittedEvents() []sharedEvents.Event {
	return a.uncommitted
}

// MarkEventsCommitted limpia los eventos pendientes tras un append exitoso.
func (a *AggregateRoot) MarkEventsCommitted() {
	a.uncommitted = nil
}

func (a *AggregateRoot) setID(id string) {
	a.id = id
}

// record añade el evento a los pendientes e incrementa la versión.
// El que llama debe haber aplicado ya el evento a su estado.
func (a *AggregateRoot) record(e sharedEvents.Event) {
	a.uncommitted = append(a.uncommitted, e)
	a.version++
}

// replayed incrementa la versión por un evento rehidratado desde el store.
func (a *AggregateRoot) replayed() {
	a.version++
}
