package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lixenwraith/diffsound/core"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			core.HandleCrash(r)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultOptions()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "diffsound: %v\n", err)
		stop()
		os.Exit(1)
	}
}
