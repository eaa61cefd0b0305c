package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/camctl/internal/cli"
	"github.com/okian/camctl/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewSimulatorCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
