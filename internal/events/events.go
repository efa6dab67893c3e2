// Package events carries lifecycle events from worksheets and the manager to
// whoever is interested (logs, tests).
package events

import "github.com/rs/zerolog"

// Event represents a lifecycle event.
// Minimal and stable: name + worksheet ID and optional fields via key/values.
type Event struct {
	Name        string
	WorksheetID string
	Fields      map[string]any
}

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// Noop drops events. It is the default everywhere a Publisher is optional.
type Noop struct{}

func (Noop) Publish(Event) {}

// OrNoop returns p, or Noop when p is nil.
func OrNoop(p Publisher) Publisher {
	if p == nil {
		return Noop{}
	}
	return p
}

// LogPublisher writes every event as a debug log line.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Logger.Debug().Str("event", e.Name)
	if e.WorksheetID != "" {
		ev = ev.Str("worksheet", e.WorksheetID)
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("worksheet event")
}

// Multi fans an event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(e Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}
