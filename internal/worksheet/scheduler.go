package worksheet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"worksheetd/internal/common/fsutil"
	"worksheetd/internal/compute"
	"worksheetd/internal/history"
)

// Status is the result of CheckComputation.
type Status string

const (
	StatusWorking        Status = "working"
	StatusDone           Status = "done"
	StatusCrashedRestart Status = "crashed-restart"
)

// Outcome labels for metrics and history.
const (
	outcomeDone        = "done"
	outcomeInterrupted = "interrupted"
	outcomeCrashed     = "crashed"
	outcomeError       = "error"
)

// Enqueue schedules c for evaluation on behalf of user and starts it when
// nothing else is computing. Enqueueing a cell that is already queued is a
// no-op. A spawn failure is returned after the cell has been marked
// interrupted and dropped from the queue.
func (w *Worksheet) Enqueue(c *Cell, user string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c == nil || c.ws != w {
		return ErrNotOwned
	}
	w.touchLocked(user)
	if w.queue.contains(c) {
		return nil
	}
	w.enqueueLocked(c, user)
	return w.startNextIfIdleLocked()
}

func (w *Worksheet) enqueueLocked(c *Cell, user string) {
	d, _ := ParseDirectives(c.input)
	c.directives = d
	c.user = user
	c.state = StateQueued
	c.interrupted = NotInterrupted
	w.queue.push(c, c.asap || d.Asap)
	w.stateNumber++
}

// StartNextIfIdle starts the head of the queue when nothing is computing.
func (w *Worksheet) StartNextIfIdle() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.startNextIfIdleLocked()
}

func (w *Worksheet) startNextIfIdleLocked() error {
	for {
		head := w.queue.head()
		if head == nil || head.state == StateComputing {
			return nil
		}
		code, err := w.prepareLocked(head)
		if err != nil {
			// The cell never reaches the interpreter.
			now := w.cfg.Clock()
			head.computeStart = now
			head.output = err.Error() + "\n"
			w.finishLocked(head, outcomeError, now)
			continue
		}
		if code == "" && head.introspect == nil {
			now := w.cfg.Clock()
			head.computeStart = now
			head.output = ""
			w.finishLocked(head, outcomeDone, now)
			continue
		}

		proc := w.processLocked()
		if w.needsRestart {
			proc.Quit()
			w.needsRestart = false
			w.publish("restart", map[string]any{"reason": "crash"})
		}
		head.state = StateComputing
		head.computeStart = w.cfg.Clock()
		head.rawOutput = ""
		if head.introspect == nil {
			head.output = ""
			head.outputHTML = ""
			head.files = nil
			head.truncated = false
		}
		if err := proc.Execute(code, w.cfg.DataDir); err != nil {
			head.output = err.Error() + "\n"
			head.markInterrupted()
			w.queue.remove(head)
			w.recordLocked(head, outcomeError, w.cfg.Clock())
			w.stateNumber++
			w.log.Error().Str("event", "execute_error").Int("cell", head.id).Err(err).Msg("cannot start computation")
			return err
		}
		w.log.Debug().Str("event", "computation_started").Int("cell", head.id).Int("exec", proc.ExecNumber()).Msg("cell computing")
		w.publish("computation_started", map[string]any{"cell": head.id})
		return nil
	}
}

// prepareLocked turns the head cell into code for the interpreter, applying
// its directives.
func (w *Worksheet) prepareLocked(c *Cell) (string, error) {
	if c.introspect != nil {
		return w.cfg.Dialect.Introspect(c.introspect.Before, c.introspect.After), nil
	}
	d, code := ParseDirectives(c.input)
	c.directives = d
	c.hidden = d.Hide
	if d.DefaultMode != "" {
		if _, err := w.cfg.Dialect.WrapSystem(d.DefaultMode, ""); err != nil {
			return "", err
		}
		w.system = d.DefaultMode
	}
	system := d.System
	if system == "" {
		system = w.system
	}
	if strings.TrimSpace(code) == "" {
		return "", nil
	}
	return w.cfg.Dialect.WrapSystem(system, code)
}

// CheckComputation advances the running cell. It returns the cell that is
// computing (StatusWorking) or the one that just finished; with an empty
// queue it returns StatusDone and no cell.
func (w *Worksheet) CheckComputation() (Status, *CellView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	head := w.queue.head()
	if head == nil {
		return StatusDone, nil, nil
	}
	if head.state != StateComputing {
		err := w.startNextIfIdleLocked()
		return w.statusOfHeadLocked(), w.headViewLocked(), err
	}
	// Someone watching a computation keeps the worksheet alive.
	w.lastActivity = w.cfg.Clock()

	proc := w.proc
	if proc == nil || !proc.IsStarted() {
		// The interpreter went away underneath us (wall-time limit).
		head.markInterrupted()
		head.output += "\nComputation killed: time limit exceeded\n"
		w.finishLocked(head, outcomeInterrupted, w.cfg.Clock())
		v := head.view()
		return StatusDone, &v, w.startNextIfIdleLocked()
	}

	st := proc.PollOutput()
	if !st.Done {
		if head.introspect == nil && !head.noOutput && st.Text != head.rawOutput {
			head.rawOutput = st.Text
			head.output, _ = w.cfg.Truncation.Apply(st.Text, "")
			w.stateNumber++
		}
		v := head.view()
		return StatusWorking, &v, nil
	}

	outcome := w.finalizeLocked(head, st, false)
	status := StatusDone
	if outcome == outcomeCrashed {
		status = StatusCrashedRestart
	}
	v := head.view()
	return status, &v, w.startNextIfIdleLocked()
}

func (w *Worksheet) statusOfHeadLocked() Status {
	if h := w.queue.head(); h != nil && h.state == StateComputing {
		return StatusWorking
	}
	return StatusDone
}

func (w *Worksheet) headViewLocked() *CellView {
	h := w.queue.head()
	if h == nil {
		return nil
	}
	v := h.view()
	return &v
}

// finalizeLocked stores the final output of c, harvests produced files and
// removes c from the queue. It returns the outcome label.
func (w *Worksheet) finalizeLocked(c *Cell, st compute.OutputStatus, interrupted bool) string {
	now := w.cfg.Clock()
	text := st.Text
	if c.directives.Time && c.introspect == nil {
		text += fmt.Sprintf("Time: %.2f s\n", now.Sub(c.computeStart).Seconds())
	}
	outcome := outcomeDone
	if interrupted {
		outcome = outcomeInterrupted
	}
	if w.fatal(text) {
		outcome = outcomeCrashed
		c.interrupted = InterruptedRestart
		w.needsRestart = true
		w.log.Warn().Str("event", "crash_detected").Int("cell", c.id).Msg("interpreter crashed; restarting before next cell")
		w.publish("crash_detected", map[string]any{"cell": c.id})
	} else if interrupted {
		c.interrupted = Interrupted
	}

	if c.introspect != nil {
		c.introspectText = text
		c.introspect = nil
		w.finishLocked(c, outcome, now)
		return outcome
	}

	files := w.harvestLocked(c, st)
	if !c.noOutput {
		out, truncated := w.cfg.Truncation.Apply(text, "")
		if truncated {
			ref := w.saveFullOutputLocked(c, text)
			out, _ = w.cfg.Truncation.Apply(text, ref)
			outputTruncationsTotal.Inc()
		}
		c.output = out
		c.truncated = truncated
	}
	c.files = files
	c.outputHTML = filesHTML(c.id, files)
	w.finishLocked(c, outcome, now)
	return outcome
}

// finishLocked moves c out of the queue into its final state and records it.
func (w *Worksheet) finishLocked(c *Cell, outcome string, now time.Time) {
	switch outcome {
	case outcomeInterrupted:
		c.state = StateInterrupted
	default:
		c.state = StateDone
	}
	w.queue.remove(c)
	w.stateNumber++
	w.recordLocked(c, outcome, now)
	w.log.Debug().Str("event", "computation_done").Int("cell", c.id).Str("outcome", outcome).Msg("cell finished")
	w.publish("computation_done", map[string]any{"cell": c.id, "outcome": outcome})
}

func (w *Worksheet) recordLocked(c *Cell, outcome string, now time.Time) {
	computationsTotal.WithLabelValues(outcome).Inc()
	if !c.computeStart.IsZero() {
		computationDuration.Observe(now.Sub(c.computeStart).Seconds())
	}
	if w.cfg.Recorder == nil {
		return
	}
	exec := 0
	if w.proc != nil {
		exec = w.proc.ExecNumber()
	}
	entry := history.Entry{
		WorksheetID: w.cfg.ID,
		CellID:      c.id,
		ExecNumber:  exec,
		User:        c.user,
		Outcome:     outcome,
		Truncated:   c.truncated,
		OutputBytes: len(c.output),
		StartedAt:   c.computeStart,
		FinishedAt:  now,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.cfg.Recorder.Record(ctx, entry); err != nil {
		w.log.Warn().Str("event", "history_error").Int("cell", c.id).Err(err).Msg("cannot record computation")
	}
}

func (w *Worksheet) fatal(text string) bool {
	for _, m := range w.cfg.FatalMarkers {
		if m != "" && strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// harvestLocked moves files produced by the execution into the cell's
// directory, replacing what an earlier evaluation left there.
func (w *Worksheet) harvestLocked(c *Cell, st compute.OutputStatus) []string {
	dir := w.cellDir(c.id)
	if dir == "" {
		return nil
	}
	if err := fsutil.ReplaceDir(dir); err != nil {
		w.log.Warn().Str("event", "harvest_error").Int("cell", c.id).Err(err).Msg("cannot prepare cell directory")
		return nil
	}
	var kept []string
	for _, f := range st.Files {
		if err := fsutil.MoveFile(filepath.Join(st.Dir, f), filepath.Join(dir, f)); err != nil {
			w.log.Warn().Str("event", "harvest_error").Int("cell", c.id).Str("file", f).Err(err).Msg("cannot move produced file")
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

// saveFullOutputLocked writes the untruncated text next to the cell's files
// and returns the reference to put in the truncated output.
func (w *Worksheet) saveFullOutputLocked(c *Cell, text string) string {
	dir := w.cellDir(c.id)
	if dir == "" {
		return ""
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		w.log.Warn().Str("event", "full_output_error").Int("cell", c.id).Err(err).Msg("cannot save full output")
		return ""
	}
	if err := os.WriteFile(filepath.Join(dir, FullOutputFile), []byte(text), 0o644); err != nil {
		w.log.Warn().Str("event", "full_output_error").Int("cell", c.id).Err(err).Msg("cannot save full output")
		return ""
	}
	return filepath.ToSlash(filepath.Join("cells", fmt.Sprint(c.id), FullOutputFile))
}

// Interrupt stops the running cell. It sends the interrupt up to the
// configured number of attempts and reports whether the interpreter came
// back. On success every queued cell is cancelled.
func (w *Worksheet) Interrupt() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked("")
	head := w.queue.head()
	if head == nil || head.state != StateComputing || w.proc == nil {
		w.cancelQueuedLocked()
		return true
	}
	proc := w.proc
	for attempt := 0; attempt < w.cfg.InterruptAttempts; attempt++ {
		if !proc.IsStarted() {
			head.markInterrupted()
			w.finishLocked(head, outcomeInterrupted, w.cfg.Clock())
			w.cancelQueuedLocked()
			return true
		}
		if err := proc.Interrupt(); err != nil {
			w.log.Warn().Str("event", "interrupt_error").Int("cell", head.id).Err(err).Msg("cannot interrupt")
		}
		if st := proc.PollOutput(); st.Done {
			w.finalizeLocked(head, st, true)
			w.cancelQueuedLocked()
			w.log.Info().Str("event", "interrupted").Int("cell", head.id).Int("attempts", attempt+1).Msg("computation interrupted")
			w.publish("interrupted", map[string]any{"cell": head.id})
			return true
		}
		time.Sleep(w.cfg.InterruptWait)
	}
	w.log.Warn().Str("event", "interrupt_failed").Int("cell", head.id).Msg("interpreter did not respond to interrupt")
	return false
}

// CancelCell removes a queued cell that has not started yet and marks it
// interrupted. The interpreter is not touched.
func (w *Worksheet) CancelCell(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.cellLocked(id)
	if c == nil {
		return CellNotFoundError{ID: id}
	}
	if c.state == StateComputing {
		return ErrCellComputing
	}
	if w.queue.remove(c) {
		c.markInterrupted()
		w.stateNumber++
	}
	return nil
}

func (w *Worksheet) cancelQueuedLocked() {
	for _, c := range w.queue.drain() {
		if c.state != StateComputing {
			c.markInterrupted()
		} else {
			c.state = StateInterrupted
			c.interrupted = Interrupted
		}
	}
	w.stateNumber++
}

// Quit stops the interpreter and cancels everything queued. It is safe to
// call repeatedly.
func (w *Worksheet) Quit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.quitLocked("quit")
}

func (w *Worksheet) quitLocked(reason string) {
	if w.queue.len() > 0 {
		w.cancelQueuedLocked()
	}
	w.needsRestart = false
	if w.proc == nil || !w.proc.IsStarted() {
		return
	}
	w.proc.Quit()
	w.log.Info().Str("event", "quit").Str("reason", reason).Msg("worksheet interpreter stopped")
	w.publish("quit", map[string]any{"reason": reason})
}

// Restart quits the interpreter and enqueues every %auto cell.
func (w *Worksheet) Restart() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touchLocked("")
	w.quitLocked("restart")
	for _, c := range w.cells {
		if d, _ := ParseDirectives(c.input); d.Auto {
			w.enqueueLocked(c, w.lastUser)
		}
	}
	w.publish("restart", map[string]any{"reason": "user"})
	return w.startNextIfIdleLocked()
}

// QuitIfIdle quits the interpreter when it has been idle for longer than
// threshold. It reports whether it did.
func (w *Worksheet) QuitIfIdle(now time.Time, threshold time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if threshold <= 0 || w.proc == nil || !w.proc.IsStarted() {
		return false
	}
	if now.Sub(w.lastActivity) <= threshold {
		return false
	}
	w.quitLocked("idle")
	return true
}
