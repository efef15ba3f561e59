package core

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
)

// Finisher restores a terminal taken over by a full-screen view
type Finisher interface {
	Fini()
}

var (
	crashMu       sync.Mutex
	crashTerminal Finisher
	crashExit     = os.Exit
)

// SetCrashTerminal registers the screen to restore before a crash report; nil clears it
func SetCrashTerminal(f Finisher) {
	crashMu.Lock()
	crashTerminal = f
	crashMu.Unlock()
}

// HandleCrash restores the terminal, reports the panic with its stack, and exits
func HandleCrash(r any) {
	if r == nil {
		return
	}
	stack := debug.Stack()

	crashMu.Lock()
	term := crashTerminal
	crashTerminal = nil
	crashMu.Unlock()
	if term != nil {
		term.Fini()
	}

	slog.Default().Error("crash", "component", "core", "panic", fmt.Sprint(r), "stack", string(stack))
	fmt.Fprintf(os.Stderr, "\n\x1b[31mDIFFSOUND CRASHED: %v\x1b[0m\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", stack)
	crashExit(1)
}

// Go runs fn in a new goroutine with panic recovery
// Use instead of the go keyword so a crash never leaves the terminal in raw mode
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
