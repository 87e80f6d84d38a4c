package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"adlens/adapters/postgres"
	"adlens/internal/config"
	"adlens/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[Main] No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Main] Configuration error: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("[Main] DATABASE_URL is required to serve the run archive")
	}

	repo, err := postgres.Connect(cfg.Database.URL)
	if err != nil {
		log.Fatalf("[Main] Failed to connect to run archive: %v", err)
	}
	defer repo.Close()

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.New(repo).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("[Main] Serving run archive on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("[Main] Server error: %v", err)
	}
	log.Println("[Main] Shutdown complete")
}
