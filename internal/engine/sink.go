package engine

import (
	"errors"

	"github.com/efreitasn/matchcore/internal/domain"
)

// EventSink receives a market's events in the order matching decisions
// were made. Publish is called on the market worker, one batch per
// command, so an implementation must not call back into the engine.
type EventSink interface {
	Publish(events []domain.Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(events []domain.Event) error

// Publish calls f(events).
func (f EventSinkFunc) Publish(events []domain.Event) error {
	return f(events)
}

// Sinks fans a batch out to every sink. All sinks see the batch even if
// one of them fails.
type Sinks []EventSink

// Publish implements EventSink.
func (s Sinks) Publish(events []domain.Event) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Publish(events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
