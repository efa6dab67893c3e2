package worksheet

import (
	"html"
	"strconv"
	"strings"
	"time"
)

// CellState is the lifecycle position of a cell in the evaluation pipeline.
type CellState int

const (
	StateIdle CellState = iota
	StateQueued
	StateComputing
	StateDone
	StateInterrupted
)

func (s CellState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateComputing:
		return "computing"
	case StateDone:
		return "done"
	case StateInterrupted:
		return "interrupted"
	default:
		return "idle"
	}
}

// Interruption records how a cell's last evaluation was cut short.
type Interruption int

const (
	NotInterrupted Interruption = iota
	// Interrupted means the user (or a timeout) stopped the cell.
	Interrupted
	// InterruptedRestart means the output showed a fatal crash and the
	// interpreter is restarted before the next cell runs.
	InterruptedRestart
)

func (i Interruption) String() string {
	switch i {
	case Interrupted:
		return "interrupted"
	case InterruptedRestart:
		return "restart"
	default:
		return ""
	}
}

// Introspection is a pending completion or documentation request.
// Before is the input up to the cursor, After the rest of the line.
type Introspection struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// Cell is a unit of input code plus its most recent output. Cells belong to
// exactly one worksheet; all fields are guarded by the worksheet's lock.
type Cell struct {
	ws *Worksheet
	id int

	input      string
	version    int
	state      CellState
	output     string
	rawOutput  string
	outputHTML string
	files      []string

	introspect     *Introspection
	introspectText string

	interrupted Interruption
	noOutput    bool
	asap        bool
	hidden      bool

	directives   Directives
	computeStart time.Time
	truncated    bool
	user         string
}

// ID returns the cell's identifier, unique within its worksheet.
func (c *Cell) ID() int { return c.id }

// Snapshot returns a consistent copy of the cell.
func (c *Cell) Snapshot() CellView {
	c.ws.mu.Lock()
	defer c.ws.mu.Unlock()
	return c.view()
}

// CellView is a point-in-time copy of a cell.
type CellView struct {
	ID             int            `json:"id"`
	Input          string         `json:"input"`
	Version        int            `json:"version"`
	State          string         `json:"state"`
	Output         string         `json:"output"`
	OutputHTML     string         `json:"output_html,omitempty"`
	Files          []string       `json:"files,omitempty"`
	IntrospectText string         `json:"introspect,omitempty"`
	Introspection  *Introspection `json:"introspection,omitempty"`
	Interrupted    string         `json:"interrupted,omitempty"`
	NoOutput       bool           `json:"no_output,omitempty"`
	Asap           bool           `json:"asap,omitempty"`
	Hidden         bool           `json:"hidden,omitempty"`
	Truncated      bool           `json:"truncated,omitempty"`
}

func (c *Cell) view() CellView {
	v := CellView{
		ID:             c.id,
		Input:          c.input,
		Version:        c.version,
		State:          c.state.String(),
		Output:         c.output,
		OutputHTML:     c.outputHTML,
		IntrospectText: c.introspectText,
		Interrupted:    c.interrupted.String(),
		NoOutput:       c.noOutput,
		Asap:           c.asap,
		Hidden:         c.hidden,
		Truncated:      c.truncated,
	}
	if len(c.files) > 0 {
		v.Files = append([]string(nil), c.files...)
	}
	if c.introspect != nil {
		in := *c.introspect
		v.Introspection = &in
	}
	return v
}

func (c *Cell) setInput(input string) {
	if input == c.input {
		return
	}
	c.input = input
	c.version++
}

func (c *Cell) markInterrupted() {
	c.state = StateInterrupted
	c.interrupted = Interrupted
	c.introspect = nil
}

// filesHTML links the produced files relative to the worksheet's cell tree.
func filesHTML(cellID int, files []string) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range files {
		href := "cells/" + strconv.Itoa(cellID) + "/" + f
		b.WriteString(`<a href="` + html.EscapeString(href) + `" target="_new">` + html.EscapeString(f) + "</a>\n")
	}
	return b.String()
}
