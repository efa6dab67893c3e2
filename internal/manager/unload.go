package manager

import "os"

// Delete stops a worksheet's interpreter, forgets the worksheet and removes
// its directory.
func (m *Manager) Delete(id string) error {
	if id == "" {
		return ErrWorksheetNotFound("(unspecified)")
	}
	m.mu.Lock()
	e := m.worksheets[id]
	if e == nil {
		m.mu.Unlock()
		return ErrWorksheetNotFound(id)
	}
	delete(m.worksheets, id)
	n := len(m.worksheets)
	pub := m.publisher
	m.mu.Unlock()
	worksheetsGauge.Set(float64(n))

	e.ws.Close()
	if e.dir != "" {
		if err := os.RemoveAll(e.dir); err != nil {
			m.log.Warn().Str("event", "worksheet_cleanup_error").Str("worksheet", id).Err(err).Msg("cannot remove worksheet directory")
		}
	}
	m.log.Info().Str("event", "worksheet_deleted").Str("worksheet", id).Msg("worksheet deleted")
	pub.Publish(eventsEvent("worksheet_deleted", id, nil))
	return nil
}
