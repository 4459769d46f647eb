package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/shelfchat/shelfchat/internal/cli/shelfchatctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := shelfchatctl.Run(ctx, os.Args[1:], shelfchatctl.Options{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	stop()
	os.Exit(code)
}
