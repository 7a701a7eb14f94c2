package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(run).ExecuteContext(runCtx); err != nil {
		os.Exit(1)
	}
}
