package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tansive/francine/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

// run executes the command line. cli.Execute has already printed any error.
func run(ctx context.Context) error {
	return cli.Execute(ctx)
}
