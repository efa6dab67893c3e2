package manager

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"worksheetd/internal/compute"
	"worksheetd/internal/events"
	"worksheetd/internal/worksheet"
)

// Manager owns every open worksheet, the registry of their interpreters and
// the background tick that enforces time limits and idle timeouts.
type Manager struct {
	mu         sync.RWMutex
	cfg        ManagerConfig
	log        zerolog.Logger
	publisher  events.Publisher
	registry   *compute.ProcessRegistry
	worksheets map[string]*entry

	startTime     time.Time
	idleEvictions atomic.Uint64
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:        cfg,
		log:        cfg.Logger,
		publisher:  events.OrNoop(cfg.Publisher),
		registry:   compute.NewProcessRegistry(),
		worksheets: make(map[string]*entry),
		startTime:  cfg.Clock(),
	}
}

// SetEventPublisher replaces the publisher used for manager and worksheet
// events created from now on.
func (m *Manager) SetEventPublisher(p events.Publisher) {
	m.mu.Lock()
	m.publisher = events.OrNoop(p)
	m.mu.Unlock()
}

// Ready reports whether new worksheets can be served.
func (m *Manager) Ready() bool {
	return m.SanityCheck().OK
}

// Create opens a new worksheet with the given initial cells.
func (m *Manager) Create(name string, cells []string) (*worksheet.Worksheet, error) {
	id := ulid.Make().String()
	dir := ""
	if m.cfg.DataDir != "" {
		dir = filepath.Join(m.cfg.DataDir, "worksheets", id)
		if err := os.MkdirAll(filepath.Join(dir, "data"), 0o755); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	pub := m.publisher
	m.mu.Unlock()

	wcfg := worksheet.Config{
		ID:           id,
		Dir:          dir,
		NewProcess:   m.processFactory(id),
		Registry:     m.registry,
		Dialect:      m.dialect(),
		Truncation:   m.cfg.Truncation,
		FatalMarkers: m.cfg.FatalMarkers,
		Publisher:    pub,
		Logger:       m.log,
		Clock:        m.cfg.Clock,
	}
	if dir != "" {
		wcfg.DataDir = filepath.Join(dir, "data")
	}
	if m.cfg.History != nil {
		wcfg.Recorder = m.cfg.History
	}
	ws := worksheet.New(wcfg)
	for _, input := range cells {
		ws.NewCell(input)
	}

	m.mu.Lock()
	m.worksheets[id] = &entry{ws: ws, name: name, dir: dir, created: m.cfg.Clock()}
	n := len(m.worksheets)
	m.mu.Unlock()
	worksheetsGauge.Set(float64(n))

	m.log.Info().Str("event", "worksheet_created").Str("worksheet", id).Str("name", name).Msg("worksheet created")
	pub.Publish(events.Event{Name: "worksheet_created", WorksheetID: id, Fields: map[string]any{"name": name}})
	return ws, nil
}

// Get returns the worksheet with the given id.
func (m *Manager) Get(id string) (*worksheet.Worksheet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e := m.worksheets[id]
	if e == nil {
		return nil, ErrWorksheetNotFound(id)
	}
	return e.ws, nil
}

// Name returns the name a worksheet was created with.
func (m *Manager) Name(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e := m.worksheets[id]; e != nil {
		return e.name
	}
	return ""
}

// List returns all worksheets ordered by id (which is creation order).
func (m *Manager) List() []*worksheet.Worksheet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.worksheets))
	for id := range m.worksheets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*worksheet.Worksheet, len(ids))
	for i, id := range ids {
		out[i] = m.worksheets[id].ws
	}
	return out
}

// Registry exposes the process registry, mostly for tests and status.
func (m *Manager) Registry() *compute.ProcessRegistry { return m.registry }

// Close stops every interpreter. Worksheets stay registered.
func (m *Manager) Close() {
	for _, ws := range m.List() {
		ws.Quit()
	}
	m.registry.QuitAll()
}
