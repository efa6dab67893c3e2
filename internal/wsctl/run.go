package wsctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"worksheetd/internal/worksheet"
)

// CellMarker starts a new cell in a worksheet script.
const CellMarker = "#%%"

// SplitCells splits a script into cell inputs at lines starting with
// CellMarker. Blank cells are dropped.
func SplitCells(src string) []string {
	var cells []string
	var cur []string
	flush := func() {
		if s := strings.TrimSpace(strings.Join(cur, "\n")); s != "" {
			cells = append(cells, s)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), CellMarker) {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return cells
}

// runScript evaluates every cell of the script in order, writing each
// output to out. It stops at the first interrupted cell unless keepGoing.
func runScript(ctx context.Context, s *Session, src string, out io.Writer, keepGoing bool) error {
	cells := SplitCells(src)
	for i, input := range cells {
		v, err := s.Eval(ctx, input)
		if err != nil {
			return fmt.Errorf("cell %d: %w", i+1, err)
		}
		printCell(out, v)
		if v.Interrupted != "" && !keepGoing {
			return fmt.Errorf("cell %d interrupted", i+1)
		}
	}
	return nil
}

func runFile(ctx context.Context, s *Session, path string, out io.Writer, keepGoing bool) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return runScript(ctx, s, string(b), out, keepGoing)
}

// printCell writes a cell's output followed by any notes about it.
func printCell(out io.Writer, v worksheet.CellView) {
	if v.Output != "" {
		fmt.Fprint(out, v.Output)
		if !strings.HasSuffix(v.Output, "\n") {
			fmt.Fprintln(out)
		}
	}
	if v.IntrospectText != "" {
		fmt.Fprintln(out, strings.TrimRight(v.IntrospectText, "\n"))
	}
	for _, f := range v.Files {
		fmt.Fprintf(out, "[file] cells/%d/%s\n", v.ID, f)
	}
	if v.Truncated {
		fmt.Fprintf(out, "[truncated] full output in cells/%d/%s\n", v.ID, worksheet.FullOutputFile)
	}
	switch v.Interrupted {
	case "":
	case "restart":
		fmt.Fprintln(out, "[crashed] interpreter will restart")
	default:
		fmt.Fprintln(out, "[interrupted]")
	}
}
