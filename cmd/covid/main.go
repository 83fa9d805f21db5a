package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// go run ./cmd/covid run --countries="Brazil,Chile" --narrate
// go run ./cmd/covid snapshot --metric=total_deaths --top=5
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
