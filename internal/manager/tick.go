package manager

import (
	"context"
	"time"

	"worksheetd/internal/events"
)

// Run drives Tick every TickInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	t := time.NewTicker(m.cfg.TickInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Tick(m.cfg.Clock())
		}
	}
}

// Tick enforces process wall-time limits and stops the interpreters of idle
// worksheets. It returns how many interpreters were stopped for idleness.
func (m *Manager) Tick(now time.Time) int {
	m.registry.UpdateAll(now)
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	evicted := 0
	for _, ws := range m.List() {
		if !ws.QuitIfIdle(now, m.cfg.IdleTimeout) {
			continue
		}
		evicted++
		m.idleEvictions.Add(1)
		idleEvictionsTotal.Inc()
		m.log.Info().Str("event", "idle_eviction").Str("worksheet", ws.ID()).Dur("idle_timeout", m.cfg.IdleTimeout).Msg("stopped idle interpreter")
		m.mu.RLock()
		pub := m.publisher
		m.mu.RUnlock()
		pub.Publish(eventsEvent("idle_eviction", ws.ID(), nil))
	}
	return evicted
}

func eventsEvent(name, id string, fields map[string]any) events.Event {
	return events.Event{Name: name, WorksheetID: id, Fields: fields}
}
