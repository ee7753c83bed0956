package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"octarcade/internal/config"
	"octarcade/internal/server"
)

func gracefulShutdown(app *server.FiberServer, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("[SERVER] Shutting down gracefully, press Ctrl+C again to force")
	stop()

	if err := app.Shutdown(); err != nil {
		log.Printf("[SERVER] Controller shutdown error: %v", err)
	}
	if err := app.App.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Printf("[SERVER] Server forced to shutdown with error: %v", err)
	}

	log.Println("[SERVER] Server exiting")
	done <- true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.Player == "" {
		log.Println("[SERVER] PLAYER_ADDRESS not set, actions will be rejected until a wallet is configured")
	}
	if cfg.RelayURL == "" {
		log.Println("[SERVER] SIGNER_RELAY_URL not set, submissions will fail")
	}

	app := server.New(cfg)
	app.RegisterFiberRoutes()
	app.RegisterGameRoutes()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start game controllers: %v", err)
	}

	done := make(chan bool, 1)
	go func() {
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			log.Printf("[SERVER] http server error: %v", err)
		}
	}()

	go gracefulShutdown(app, done)

	<-done
	log.Println("Graceful shutdown complete.")
}
