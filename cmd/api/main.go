package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"rolewarden/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases), degrading to a
//    fail-fast store when the database is unreachable.
// 3) Start HTTP server.
func main() {
	log.Println("rolewarden api starting")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildAPI(ctx)
	if err != nil {
		log.Fatalf("bootstrap api failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("api shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("rolewarden api stopped with error: %v", err)
	}
}
