package main

// fake_interp is a line-oriented interpreter for the LocalProcess tests.
//
// Input lines: `run <path>` executes a program file, `exit` quits.
// Program lines: echo <text>, sleep <ms>, touch <name>, ls, crash, exit.
// SIGINT during sleep prints KeyboardInterrupt and returns to the prompt.

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

func main() {
	prompt := os.Getenv("FAKE_PROMPT")
	if prompt == "" {
		prompt = "PROMPT>"
	}
	sigs := make(chan os.Signal, 4)
	signal.Notify(sigs, os.Interrupt)
	fmt.Print(prompt)
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "exit":
			return
		case strings.HasPrefix(line, "run "):
			drain(sigs)
			runFile(strings.TrimSpace(line[4:]), sigs)
		}
		fmt.Print(prompt)
	}
}

func drain(ch chan os.Signal) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func runFile(path string, sigs chan os.Signal) {
	_ = os.Chdir(filepath.Dir(path))
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, line := range strings.Split(string(b), "\n") {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		switch cmd {
		case "echo":
			fmt.Println(arg)
		case "sleep":
			ms, _ := strconv.Atoi(arg)
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-sigs:
				fmt.Println("KeyboardInterrupt")
				return
			}
		case "touch":
			_ = os.WriteFile(arg, []byte("x"), 0o644)
		case "ls":
			entries, _ := os.ReadDir(".")
			for _, e := range entries {
				fmt.Println(e.Name())
			}
		case "crash":
			fmt.Println("Unhandled SIGSEGV: A segmentation fault occurred.")
			os.Exit(139)
		case "exit":
			os.Exit(0)
		}
	}
}
