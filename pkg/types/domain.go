package types

// Cell is one input block of a worksheet together with its latest output.
type Cell struct {
	// Identifier, unique within the worksheet.
	// example: 3
	ID int `json:"id" example:"3"`
	// Source text, including any leading %-directives.
	// example: x = 40\nx + 2
	Input string `json:"input" example:"x = 40\nx + 2"`
	// Incremented whenever the input changes.
	// example: 1
	Version int `json:"version" example:"1"`
	// One of idle, queued, computing, done, interrupted.
	// example: done
	State string `json:"state" example:"done"`
	// Output text, possibly truncated.
	// example: 42
	Output string `json:"output" example:"42"`
	// Links to files the last evaluation produced.
	OutputHTML string `json:"output_html,omitempty"`
	// Names of produced files, relative to cells/<id>/.
	// example: ["plot.png"]
	Files []string `json:"files,omitempty" example:"[\"plot.png\"]"`
	// Result of the last completion or documentation request.
	Introspect string `json:"introspect,omitempty"`
	// Empty, "interrupted" or "restart".
	// example: interrupted
	Interrupted string `json:"interrupted,omitempty" example:"interrupted"`
	// The output of this cell is discarded.
	NoOutput bool `json:"no_output,omitempty"`
	// The cell jumps the evaluation queue.
	Asap bool `json:"asap,omitempty"`
	// The input is hidden (%hide).
	Hidden bool `json:"hidden,omitempty"`
	// The output was cut down; the full text is in cells/<id>/full_output.txt.
	Truncated bool `json:"truncated,omitempty"`
}

// Worksheet is the full view of a worksheet.
type Worksheet struct {
	// Worksheet identifier (ULID).
	// example: 01HZX4Q4V2M4Y7B8J6K3N5P9QR
	ID string `json:"id" example:"01HZX4Q4V2M4Y7B8J6K3N5P9QR"`
	// Human-friendly name.
	// example: scratch
	Name string `json:"name,omitempty" example:"scratch"`
	// Increases on every structural or output change.
	// example: 17
	StateNumber int `json:"state_number" example:"17"`
	// System used by cells without a %system directive.
	// example: python
	System string `json:"system,omitempty" example:"python"`
	// Whether a cell is currently computing.
	Computing bool `json:"computing"`
	// Whether the interpreter process is running.
	ProcessStarted bool `json:"process_started"`
	// Ids of queued cells in evaluation order; the first may be computing.
	// example: [3,4]
	Queue []int `json:"queue" example:"3,4"`
	// Cells in worksheet order.
	Cells []Cell `json:"cells"`
}

// HistoryEntry is a finished computation.
type HistoryEntry struct {
	// example: 12
	ID int64 `json:"id" example:"12"`
	// example: 01HZX4Q4V2M4Y7B8J6K3N5P9QR
	WorksheetID string `json:"worksheet_id" example:"01HZX4Q4V2M4Y7B8J6K3N5P9QR"`
	// example: 3
	CellID int `json:"cell_id" example:"3"`
	// Interpreter execution counter at the time.
	// example: 7
	ExecNumber int `json:"exec_number" example:"7"`
	// example: alice
	User string `json:"user,omitempty" example:"alice"`
	// One of done, interrupted, crashed, error.
	// example: done
	Outcome   string `json:"outcome" example:"done"`
	Truncated bool   `json:"truncated"`
	// example: 3
	OutputBytes int `json:"output_bytes" example:"3"`
	// Start of the computation (unix milliseconds).
	// example: 1700000000000
	StartedAtMs int64 `json:"started_at_ms" example:"1700000000000"`
	// Wall time in milliseconds.
	// example: 15
	DurationMs int64 `json:"duration_ms" example:"15"`
}
