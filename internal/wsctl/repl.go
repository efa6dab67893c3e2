package wsctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"
)

const (
	historyFile = ".wsctl_history"
	promptMain  = "ws> "
	promptCont  = "... "
)

const replHelp = `Enter code to evaluate it. A line ending in ':' or '\' continues
until an empty line. Commands:
  :quit       exit
  :restart    restart the interpreter and re-run %auto cells
  :history    list recent computations
  :help       this text
`

// lineReader is the part of liner.State the loop needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// readCell reads one cell, following continuation lines. ok is false at
// end of input.
func readCell(ln lineReader) (string, bool, error) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return b.String(), b.Len() > 0, nil
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true, nil
		}
		if err != nil {
			return "", false, err
		}
		if b.Len() > 0 {
			if strings.TrimSpace(line) == "" {
				return b.String(), true, nil
			}
			b.WriteByte('\n')
		}
		first := b.Len() == 0
		b.WriteString(line)
		trimmed := strings.TrimRight(line, " \t")
		if first && !strings.HasSuffix(trimmed, ":") && !strings.HasSuffix(trimmed, "\\") {
			return b.String(), true, nil
		}
	}
}

// repl evaluates cells read from ln until :quit or end of input.
func repl(ctx context.Context, s *Session, ln lineReader, out io.Writer) error {
	for {
		src, ok, err := readCell(ln)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cmd := strings.TrimSpace(src)
		if cmd == "" {
			continue
		}
		ln.AppendHistory(src)
		switch cmd {
		case ":quit", ":q":
			return nil
		case ":help":
			fmt.Fprint(out, replHelp)
			continue
		case ":restart":
			if err := s.Restart(ctx); err != nil {
				fmt.Fprintf(out, "restart failed: %v\n", err)
			}
			continue
		case ":history":
			entries, err := s.History(ctx, 10)
			if err != nil {
				fmt.Fprintf(out, "history: %v\n", err)
				continue
			}
			for _, e := range entries {
				fmt.Fprintf(out, "#%d cell %d %s %s\n", e.ExecNumber, e.CellID, e.Outcome, e.Duration())
			}
			continue
		}
		v, err := s.Eval(ctx, src)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printCell(out, v)
	}
}

// runREPL drives repl on the terminal with persistent line history.
func runREPL(s *Session, out io.Writer) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()
	fmt.Fprintf(out, "worksheet %s (%s). Ctrl+D exits, :help for commands.\n", s.Worksheet().ID(), s.Manager().Variant())
	return repl(ctx, s, ln, out)
}
