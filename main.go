// Package main provides the entrypoint for botads.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/botads/botads-go/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.New().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
