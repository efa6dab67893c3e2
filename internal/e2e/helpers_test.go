package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"worksheetd/internal/history"
	"worksheetd/internal/httpapi"
	"worksheetd/internal/manager"
	"worksheetd/pkg/types"
)

// newServerWithConfig starts an httptest server over a manager built from
// cfg. DataDir and History default to per-test values.
func newServerWithConfig(t *testing.T, cfg manager.ManagerConfig) (*httptest.Server, *manager.Manager) {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	if cfg.History == nil {
		cfg.History = history.NewMemoryStore()
	}
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(func() {
		srv.Close()
		mgr.Close()
	})
	return srv, mgr
}

func newReferenceServer(t *testing.T) (*httptest.Server, *manager.Manager) {
	t.Helper()
	return newServerWithConfig(t, manager.ManagerConfig{Interpreter: manager.InterpreterReference})
}

func doJSON(t *testing.T, method, url string, payload any) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func mustDecode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("json: %v body=%s", err, string(b))
	}
	return v
}

func createWorksheet(t *testing.T, base string, req types.CreateWorksheetRequest) types.Worksheet {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/worksheets", req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create %d %s", resp.StatusCode, string(body))
	}
	return mustDecode[types.Worksheet](t, body)
}

// evaluate adds a cell to the worksheet and polls check until the queue is
// empty, returning the finished cell.
func evaluate(t *testing.T, base, wsID, input string, timeout time.Duration) types.Cell {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, base+"/worksheets/"+wsID+"/cells", types.NewCellRequest{Input: input, User: "e2e"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("new cell %d %s", resp.StatusCode, string(body))
	}
	cell := mustDecode[types.Cell](t, body)
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, body = doJSON(t, http.MethodGet, base+"/worksheets/"+wsID+"/check", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("check %d %s", resp.StatusCode, string(body))
		}
		if mustDecode[types.CheckResponse](t, body).QueueLen == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	ws := getWorksheet(t, base, wsID)
	for _, c := range ws.Cells {
		if c.ID == cell.ID {
			return c
		}
	}
	t.Fatalf("cell %d missing from worksheet", cell.ID)
	return types.Cell{}
}

func getWorksheet(t *testing.T, base, wsID string) types.Worksheet {
	t.Helper()
	resp, body := doJSON(t, http.MethodGet, fmt.Sprintf("%s/worksheets/%s", base, wsID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get worksheet %d %s", resp.StatusCode, string(body))
	}
	return mustDecode[types.Worksheet](t, body)
}
