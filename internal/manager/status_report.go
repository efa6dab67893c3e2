package manager

import (
	"context"
	"time"

	"worksheetd/internal/compute"
	"worksheetd/internal/history"
	"worksheetd/internal/worksheet"
	"worksheetd/pkg/types"
)

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	now := m.cfg.Clock()
	resp := types.StatusResponse{
		Interpreter:        m.cfg.Interpreter,
		Variant:            m.Variant(),
		LiveProcesses:      m.liveProcesses(),
		IdleEvictionsTotal: m.idleEvictions.Load(),
		UptimeSeconds:      int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix:     now.Unix(),
	}
	if m.cfg.IdleTimeout > 0 {
		resp.IdleTimeoutSeconds = int64(m.cfg.IdleTimeout.Seconds())
	}
	resp.Worksheets = m.WorksheetStatuses()
	return resp
}

// WorksheetStatuses summarizes every worksheet.
func (m *Manager) WorksheetStatuses() []types.WorksheetStatus {
	now := m.cfg.Clock()
	list := m.List()
	out := make([]types.WorksheetStatus, 0, len(list))
	for _, ws := range list {
		out = append(out, m.worksheetStatus(ws, now))
	}
	return out
}

func (m *Manager) worksheetStatus(ws *worksheet.Worksheet, now time.Time) types.WorksheetStatus {
	return types.WorksheetStatus{
		ID:             ws.ID(),
		Name:           m.Name(ws.ID()),
		Cells:          len(ws.Cells()),
		QueueLen:       ws.QueueLength(),
		Computing:      ws.IsComputing(),
		ProcessStarted: ws.ProcessStarted(),
		IdleSeconds:    int64(ws.IdleFor(now).Seconds()),
	}
}

func (m *Manager) liveProcesses() int {
	n := 0
	m.registry.Each(func(p compute.Process) {
		if p.IsStarted() {
			n++
		}
	})
	return n
}

// History lists recent computations of a worksheet, newest first. An empty
// id lists across worksheets.
func (m *Manager) History(ctx context.Context, id string, limit int) ([]history.Entry, error) {
	if id != "" {
		if _, err := m.Get(id); err != nil {
			return nil, err
		}
	}
	if m.cfg.History == nil {
		return nil, nil
	}
	return m.cfg.History.List(ctx, id, limit)
}
