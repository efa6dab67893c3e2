package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"worksheetd/internal/history"
	"worksheetd/internal/worksheet"
	"worksheetd/pkg/types"
)

type handlers struct {
	svc Service
}

// worksheetFrom resolves the {id} URL parameter, writing the error response
// when it does not exist.
func (h *handlers) worksheetFrom(w http.ResponseWriter, r *http.Request) (*worksheet.Worksheet, bool) {
	ws, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	return ws, true
}

// cellFrom resolves {id} and {cid}.
func (h *handlers) cellFrom(w http.ResponseWriter, r *http.Request) (*worksheet.Worksheet, *worksheet.Cell, bool) {
	ws, ok := h.worksheetFrom(w, r)
	if !ok {
		return nil, nil, false
	}
	cid, err := strconv.Atoi(chi.URLParam(r, "cid"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "cell id must be an integer")
		return nil, nil, false
	}
	c, found := ws.Cell(cid)
	if !found {
		writeServiceError(w, r, worksheet.CellNotFoundError{ID: cid})
		return nil, nil, false
	}
	return ws, c, true
}

func toCell(v worksheet.CellView) types.Cell {
	return types.Cell{
		ID:          v.ID,
		Input:       v.Input,
		Version:     v.Version,
		State:       v.State,
		Output:      v.Output,
		OutputHTML:  v.OutputHTML,
		Files:       v.Files,
		Introspect:  v.IntrospectText,
		Interrupted: v.Interrupted,
		NoOutput:    v.NoOutput,
		Asap:        v.Asap,
		Hidden:      v.Hidden,
		Truncated:   v.Truncated,
	}
}

func (h *handlers) toWorksheet(ws *worksheet.Worksheet) types.Worksheet {
	views := ws.Cells()
	cells := make([]types.Cell, len(views))
	for i, v := range views {
		cells[i] = toCell(v)
	}
	queue := ws.QueuedIDs()
	if queue == nil {
		queue = []int{}
	}
	return types.Worksheet{
		ID:             ws.ID(),
		Name:           h.svc.Name(ws.ID()),
		StateNumber:    ws.StateNumber(),
		System:         ws.System(),
		Computing:      ws.IsComputing(),
		ProcessStarted: ws.ProcessStarted(),
		Queue:          queue,
		Cells:          cells,
	}
}

func (h *handlers) createWorksheet(w http.ResponseWriter, r *http.Request) {
	var req types.CreateWorksheetRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	ws, err := h.svc.Create(req.Name, req.Cells)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.toWorksheet(ws))
}

func (h *handlers) listWorksheets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.WorksheetsResponse{Worksheets: h.svc.WorksheetStatuses()})
}

func (h *handlers) getWorksheet(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.worksheetFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toWorksheet(ws))
}

func (h *handlers) deleteWorksheet(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) newCell(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.worksheetFrom(w, r)
	if !ok {
		return
	}
	var req types.NewCellRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	var c *worksheet.Cell
	if req.After != nil {
		var err error
		if c, err = ws.InsertCellAfter(*req.After, req.Input); err != nil {
			writeServiceError(w, r, err)
			return
		}
	} else {
		c = ws.NewCell(req.Input)
	}
	if !req.NoEvaluate {
		if err := ws.Enqueue(c, req.User); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, toCell(c.Snapshot()))
}

func (h *handlers) editCell(w http.ResponseWriter, r *http.Request) {
	ws, c, ok := h.cellFrom(w, r)
	if !ok {
		return
	}
	var req types.EditCellRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Input != nil {
		if err := ws.EditCell(c.ID(), *req.Input); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	if req.Asap != nil || req.NoOutput != nil {
		cur := c.Snapshot()
		asap, noOutput := cur.Asap, cur.NoOutput
		if req.Asap != nil {
			asap = *req.Asap
		}
		if req.NoOutput != nil {
			noOutput = *req.NoOutput
		}
		if err := ws.SetCellFlags(c.ID(), asap, noOutput); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toCell(c.Snapshot()))
}

func (h *handlers) deleteCell(w http.ResponseWriter, r *http.Request) {
	ws, c, ok := h.cellFrom(w, r)
	if !ok {
		return
	}
	if err := ws.DeleteCell(c.ID()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) evaluate(w http.ResponseWriter, r *http.Request) {
	ws, c, ok := h.cellFrom(w, r)
	if !ok {
		return
	}
	var req types.EvaluateRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if err := ws.Enqueue(c, req.User); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toCell(c.Snapshot()))
}

func (h *handlers) cancel(w http.ResponseWriter, r *http.Request) {
	ws, c, ok := h.cellFrom(w, r)
	if !ok {
		return
	}
	if err := ws.CancelCell(c.ID()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toCell(c.Snapshot()))
}

func (h *handlers) introspect(w http.ResponseWriter, r *http.Request) {
	ws, c, ok := h.cellFrom(w, r)
	if !ok {
		return
	}
	var req types.IntrospectRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if err := ws.SetIntrospection(c.ID(), req.Before, req.After); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := ws.Enqueue(c, req.User); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toCell(c.Snapshot()))
}

func (h *handlers) check(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.worksheetFrom(w, r)
	if !ok {
		return
	}
	status, view, err := ws.CheckComputation()
	checkPollsTotal.WithLabelValues(string(status)).Inc()
	resp := types.CheckResponse{Status: string(status), QueueLen: ws.QueueLength()}
	if view != nil {
		c := toCell(*view)
		resp.Cell = &c
	}
	if err != nil {
		// The finished cell is still reported; the next one failed to start.
		logFor(r).Warn().Str("event", "start_next_error").Str("worksheet", ws.ID()).Err(err).Msg("cannot start next cell")
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) interrupt(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.worksheetFrom(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, types.InterruptResponse{Interrupted: ws.Interrupt()})
}

func (h *handlers) quit(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.worksheetFrom(w, r)
	if !ok {
		return
	}
	ws.Quit()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) restart(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.worksheetFrom(w, r)
	if !ok {
		return
	}
	if err := ws.Restart(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, h.toWorksheet(ws))
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	entries, err := h.svc.History(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := types.HistoryResponse{Entries: make([]types.HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toHistoryEntry(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func toHistoryEntry(e history.Entry) types.HistoryEntry {
	return types.HistoryEntry{
		ID:          e.ID,
		WorksheetID: e.WorksheetID,
		CellID:      e.CellID,
		ExecNumber:  e.ExecNumber,
		User:        e.User,
		Outcome:     e.Outcome,
		Truncated:   e.Truncated,
		OutputBytes: e.OutputBytes,
		StartedAtMs: e.StartedAt.UnixMilli(),
		DurationMs:  e.Duration().Milliseconds(),
	}
}
