package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"rolewarden/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (store + reconciler + scheduler).
// 3) Run one catch-up pass, then sweep expired grants on the fixed period
//    until the process receives SIGINT/SIGTERM.
func main() {
	log.Println("rolewarden worker starting")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWorker(ctx)
	if err != nil {
		log.Fatalf("bootstrap worker failed: %v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("worker shutdown close failed: %v", err)
		}
	}()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("rolewarden worker stopped with error: %v", err)
	}
}
