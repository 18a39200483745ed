// Package main provides the boardsync binary entry point.
// Boardsync is an optimistic client-side synchronization cache for
// collaborative project boards.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/c360studio/boardsync/commands"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
