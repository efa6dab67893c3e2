package types

// CreateWorksheetRequest is the body of POST /worksheets.
type CreateWorksheetRequest struct {
	// Optional name.
	// example: scratch
	Name string `json:"name,omitempty" example:"scratch"`
	// Optional initial cell inputs.
	// example: ["x = 1","x + 1"]
	Cells []string `json:"cells,omitempty" example:"[\"x = 1\",\"x + 1\"]"`
}

// WorksheetsResponse wraps the list returned by GET /worksheets.
type WorksheetsResponse struct {
	Worksheets []WorksheetStatus `json:"worksheets"`
}

// NewCellRequest is the body of POST /worksheets/{id}/cells.
type NewCellRequest struct {
	// Source text of the new cell.
	// example: 2+3
	Input string `json:"input" example:"2+3"`
	// Insert after this cell id; 0 inserts at the top, omitted appends.
	// example: 2
	After *int `json:"after,omitempty" example:"2"`
	// Create the cell without evaluating it.
	NoEvaluate bool `json:"no_evaluate,omitempty"`
	// Who asked for the evaluation; recorded in history.
	// example: alice
	User string `json:"user,omitempty" example:"alice"`
}

// EditCellRequest is the body of PUT /worksheets/{id}/cells/{cid}.
type EditCellRequest struct {
	// New source text; omitted keeps the current one.
	Input *string `json:"input,omitempty"`
	// Jump the evaluation queue.
	Asap *bool `json:"asap,omitempty"`
	// Discard the output.
	NoOutput *bool `json:"no_output,omitempty"`
}

// EvaluateRequest is the body of POST .../cells/{cid}/evaluate.
type EvaluateRequest struct {
	// Who asked for the evaluation; recorded in history.
	// example: alice
	User string `json:"user,omitempty" example:"alice"`
}

// IntrospectRequest is the body of POST .../cells/{cid}/introspect.
type IntrospectRequest struct {
	// Input up to the cursor.
	// example: math.sq
	Before string `json:"before" example:"math.sq"`
	// Rest of the line after the cursor.
	After string `json:"after,omitempty"`
	// example: alice
	User string `json:"user,omitempty" example:"alice"`
}

// CheckResponse is returned by GET /worksheets/{id}/check.
type CheckResponse struct {
	// One of working, done, crashed-restart.
	// example: done
	Status string `json:"status" example:"done"`
	// The computing or just finished cell; absent when nothing is queued.
	Cell *Cell `json:"cell,omitempty"`
	// Cells still waiting, including the running one.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
}

// InterruptResponse is returned by POST /worksheets/{id}/interrupt.
type InterruptResponse struct {
	// Whether the interpreter responded to the interrupt.
	// example: true
	Interrupted bool `json:"interrupted" example:"true"`
}

// HistoryResponse is returned by GET /worksheets/{id}/history.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// WorksheetStatus summarizes a worksheet for /status and GET /worksheets.
type WorksheetStatus struct {
	// example: 01HZX4Q4V2M4Y7B8J6K3N5P9QR
	ID string `json:"id" example:"01HZX4Q4V2M4Y7B8J6K3N5P9QR"`
	// example: scratch
	Name string `json:"name,omitempty" example:"scratch"`
	// example: 4
	Cells int `json:"cells" example:"4"`
	// Queued cells, including the running one.
	// example: 1
	QueueLen  int  `json:"queue_len" example:"1"`
	Computing bool `json:"computing"`
	// Whether the interpreter process is running.
	ProcessStarted bool `json:"process_started"`
	// Seconds since the last user activity.
	// example: 12
	IdleSeconds int64 `json:"idle_seconds" example:"12"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	Worksheets []WorksheetStatus `json:"worksheets"`
	// Interpreter kind: python or reference.
	// example: python
	Interpreter string `json:"interpreter" example:"python"`
	// Process variant: local, remote or reference.
	// example: local
	Variant string `json:"variant" example:"local"`
	// Started interpreter processes.
	// example: 2
	LiveProcesses int `json:"live_processes" example:"2"`
	// Idle timeout in seconds; 0 disables idle eviction.
	// example: 3600
	IdleTimeoutSeconds int64 `json:"idle_timeout_seconds" example:"3600"`
	// Total interpreters stopped for idleness.
	// example: 5
	IdleEvictionsTotal uint64 `json:"idle_evictions_total" example:"5"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
