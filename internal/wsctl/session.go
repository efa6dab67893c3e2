package wsctl

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"worksheetd/internal/config"
	"worksheetd/internal/history"
	"worksheetd/internal/manager"
	"worksheetd/internal/worksheet"
)

// Session is one worksheet evaluated in-process, without the HTTP server.
type Session struct {
	mgr  *manager.Manager
	ws   *worksheet.Worksheet
	user string
	poll time.Duration
}

// NewSession builds a manager from cfg and opens a fresh worksheet on it.
// History is kept in memory for the life of the session.
func NewSession(cfg config.Config, log zerolog.Logger) (*Session, error) {
	cfg = cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mc, err := cfg.ManagerConfig()
	if err != nil {
		return nil, err
	}
	mc.History = history.NewMemoryStore()
	mc.Logger = log
	mgr := manager.NewWithConfig(mc)
	ws, err := mgr.Create("wsctl", nil)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	return &Session{
		mgr:  mgr,
		ws:   ws,
		user: envStr("USER", "wsctl"),
		poll: time.Duration(cfg.PollTimeoutMs) * time.Millisecond,
	}, nil
}

// Manager exposes the underlying manager, mainly for sanity checks.
func (s *Session) Manager() *manager.Manager { return s.mgr }

// Worksheet is the session's worksheet.
func (s *Session) Worksheet() *worksheet.Worksheet { return s.ws }

// Eval appends a cell holding input, evaluates it and waits for the result.
// Cancelling ctx interrupts the interpreter.
func (s *Session) Eval(ctx context.Context, input string) (worksheet.CellView, error) {
	c := s.ws.NewCell(input)
	if err := s.ws.Enqueue(c, s.user); err != nil {
		return c.Snapshot(), err
	}
	interrupted := false
	for {
		v := c.Snapshot()
		if v.State == worksheet.StateDone.String() || v.State == worksheet.StateInterrupted.String() {
			return v, nil
		}
		if !interrupted && ctx.Err() != nil {
			interrupted = true
			if !s.ws.Interrupt() {
				return v, fmt.Errorf("interpreter did not respond to interrupt")
			}
			continue
		}
		s.mgr.Tick(time.Now())
		if _, _, err := s.ws.CheckComputation(); err != nil {
			return c.Snapshot(), err
		}
		if s.ws.IsComputing() {
			time.Sleep(s.poll)
		}
	}
}

// Restart restarts the interpreter and waits for %auto cells to finish.
func (s *Session) Restart(ctx context.Context) error {
	if err := s.ws.Restart(); err != nil {
		return err
	}
	for s.ws.QueueLength() > 0 {
		if ctx.Err() != nil {
			s.ws.Interrupt()
			return ctx.Err()
		}
		if _, _, err := s.ws.CheckComputation(); err != nil {
			return err
		}
		if s.ws.IsComputing() {
			time.Sleep(s.poll)
		}
	}
	return nil
}

// History lists the session's finished computations, newest first.
func (s *Session) History(ctx context.Context, limit int) ([]history.Entry, error) {
	return s.mgr.History(ctx, s.ws.ID(), limit)
}

// Close stops the interpreter and removes the session's worksheet.
func (s *Session) Close() {
	_ = s.mgr.Delete(s.ws.ID())
	s.mgr.Close()
}
