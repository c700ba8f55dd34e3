package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/filevault/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		cmd.HandleError(err)
	}
}
