package main

import (
	"context"
	"fmt"
	"os"

	"worksheetd/internal/wsctl"
)

func main() {
	if err := wsctl.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
